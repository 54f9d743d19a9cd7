package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/marketplace-client/internal/api"
	"github.com/fairyhunter13/marketplace-client/internal/cart"
	"github.com/fairyhunter13/marketplace-client/internal/catalog"
	"github.com/fairyhunter13/marketplace-client/internal/config"
	"github.com/fairyhunter13/marketplace-client/internal/model"
	"github.com/fairyhunter13/marketplace-client/internal/notify"
	"github.com/fairyhunter13/marketplace-client/internal/obs"
	"github.com/fairyhunter13/marketplace-client/internal/session"
)

// App bundles the state the local surface reads and mutates. The cart and
// catalog are page-scoped (discarded with the process); the session is the
// long-lived realtime provider.
type App struct {
	Cfg     config.Config
	Cart    *cart.Store
	Catalog *catalog.Catalog
	Session *session.Session
	API     *api.Client
	started time.Time
}

func NewApp(cfg config.Config, c *cart.Store, cat *catalog.Catalog, s *session.Session, apiClient *api.Client) *App {
	return &App{Cfg: cfg, Cart: c, Catalog: cat, Session: s, API: apiClient, started: time.Now()}
}

type cartView struct {
	Lines []model.CartLine `json:"lines"`
	Total int64            `json:"total"`
}

func (a *App) cartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, cartView{Lines: a.Cart.Lines(), Total: a.Cart.Total()})
}

// cartItemsHandler adds the consumed selection of a product to the cart:
// consume and add are one transaction from the caller's point of view.
func (a *App) cartItemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product_id is required")
		return
	}
	line, err := a.Catalog.Consume(req.ProductID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := a.Cart.AddOrMerge(line); err != nil {
		writeDomainError(w, err)
		return
	}
	obs.Logger.Info("cart_added", "product_id", line.ProductID, "option_id", line.OptionID, "quantity", line.Quantity)
	writeJSON(w, http.StatusOK, cartView{Lines: a.Cart.Lines(), Total: a.Cart.Total()})
}

// cartLinesHandler adds an explicit line snapshot, bypassing selection state.
func (a *App) cartLinesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var line model.CartLine
	if err := decodeJSON(r, &line); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if line.ProductID == "" || line.OptionID == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product_id and option_id are required")
		return
	}
	if err := a.Cart.AddOrMerge(line); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView{Lines: a.Cart.Lines(), Total: a.Cart.Total()})
}

// cartItemHandler removes a line by index. A missing index is a no-op, same
// as the store itself.
func (a *App) cartItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/cart/items/")
	i, err := strconv.Atoi(raw)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "index must be an integer")
		return
	}
	a.Cart.Remove(i)
	writeJSON(w, http.StatusOK, cartView{Lines: a.Cart.Lines(), Total: a.Cart.Total()})
}

func (a *App) cartClearHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	a.Cart.Clear()
	writeJSON(w, http.StatusOK, cartView{Lines: a.Cart.Lines(), Total: 0})
}

// checkoutHandler submits the cart as an order and clears it on success.
func (a *App) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	lines := a.Cart.Lines()
	if len(lines) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "cart is empty")
		return
	}
	order, err := a.API.CreateOrder(r.Context(), lines)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	a.Cart.Clear()
	obs.Logger.Info("order_submitted", "order_id", order.ID, "lines", len(lines))
	writeJSON(w, http.StatusCreated, order)
}

func (a *App) productsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, a.Catalog.Products())
}

// productsRefreshHandler re-fetches the catalog wholesale.
func (a *App) productsRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	products, err := a.API.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	a.Catalog.Replace(products)
	obs.Logger.Info("catalog_refreshed", "products", len(products))
	writeJSON(w, http.StatusOK, products)
}

// productHandler routes POST /products/{id}/selection.
func (a *App) productHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	productID, action, _ := strings.Cut(rest, "/")
	if productID == "" || action != "selection" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var req struct {
		OptionID string `json:"option_id,omitempty"`
		Quantity *int   `json:"quantity,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.OptionID != "" {
		if err := a.Catalog.Select(productID, req.OptionID); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Quantity != nil {
		// out-of-range values are dropped and the prior quantity kept
		a.Catalog.SetQuantity(productID, *req.Quantity)
	}
	optionID, qty, ok := a.Catalog.Selection(productID)
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"option_id":  optionID,
		"quantity":   qty,
		"selected":   ok,
	})
}

func (a *App) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	notes := a.Session.Notifications().Snapshot()
	if notes == nil {
		notes = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// notificationHandler routes POST /notifications/{kind}/dismiss and
// POST /notifications/{kind}/view.
func (a *App) notificationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
	rawKind, action, _ := strings.Cut(rest, "/")
	kind := notify.Kind(rawKind)
	if kind != notify.KindProduct && kind != notify.KindOrder {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown notification kind")
		return
	}
	switch action {
	case "dismiss":
		a.Session.Notifications().Dismiss(kind)
		w.WriteHeader(http.StatusNoContent)
	case "view":
		target, ok := a.Session.Notifications().View(kind)
		if !ok {
			WriteJSONError(w, http.StatusNotFound, "not_found", "no visible notification")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"target": target})
	default:
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	}
}

func (a *App) pushStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":           string(a.Session.Role()),
		"state":          a.Session.PushState().String(),
		"dropped_events": a.Session.DroppedEvents(),
	})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"cart_lines":     a.Cart.Len(),
		"cart_total":     a.Cart.Total(),
		"products":       len(a.Catalog.Products()),
		"notifications":  len(a.Session.Notifications().Snapshot()),
		"push_state":     a.Session.PushState().String(),
		"dropped_events": a.Session.DroppedEvents(),
		"uptime_sec":     time.Since(a.started).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeDomainError maps the error taxonomy onto HTTP statuses: validation
// errors are the caller's problem, network errors mean the marketplace API
// was unreachable, everything else is a bad gateway response from it.
func writeDomainError(w http.ResponseWriter, err error) {
	var cve *cart.ValidationError
	var sve *catalog.ValidationError
	var ne *api.NetworkError
	var ae *api.APIError
	switch {
	case errors.As(err, &cve), errors.As(err, &sve):
		WriteJSONError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.As(err, &ne):
		WriteJSONError(w, http.StatusBadGateway, "network_error", err.Error())
	case errors.As(err, &ae):
		WriteJSONError(w, http.StatusBadGateway, "api_error", err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
