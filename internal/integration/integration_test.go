package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fairyhunter13/marketplace-client/internal/api"
	"github.com/fairyhunter13/marketplace-client/internal/cart"
	"github.com/fairyhunter13/marketplace-client/internal/catalog"
	"github.com/fairyhunter13/marketplace-client/internal/config"
	httpapi "github.com/fairyhunter13/marketplace-client/internal/http"
	"github.com/fairyhunter13/marketplace-client/internal/model"
	"github.com/fairyhunter13/marketplace-client/internal/push"
	"github.com/fairyhunter13/marketplace-client/internal/session"
)

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return nil, errors.New("closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct{ conn *fakeConn }

func (d *fakeDialer) Dial(ctx context.Context, url string, header http.Header) (push.Conn, error) {
	return d.conn, nil
}

func marketplaceStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/products":
			_ = json.NewEncoder(w).Encode([]model.Product{{
				ID:   "p1",
				Code: "P-001",
				Name: "gadget",
				Options: []model.Option{
					{ID: "optA", Code: "A", Name: "small", UnitPrice: 1500, MaxQuantity: 5},
				},
			}})
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			var req struct {
				Lines []model.CartLine `json:"lines"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			var total int64
			for _, l := range req.Lines {
				total += l.Subtotal()
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.Order{ID: "o1", Status: "created", Lines: req.Lines, Total: total})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIntegration_BuyerFlow(t *testing.T) {
	apiSrv := marketplaceStub(t)
	conn := newFakeConn()

	apiClient := api.New(apiSrv.URL)
	cat := catalog.New()
	products, err := apiClient.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	cat.Replace(products)

	sess := session.New(session.Config{
		Role:         model.RoleBuyer,
		PushURL:      "ws://stub/ws",
		Backoff:      5 * time.Millisecond,
		MaxRetries:   2,
		Buffer:       8,
		DismissAfter: time.Minute,
	}, &fakeDialer{conn: conn})
	sess.Start(context.Background())
	t.Cleanup(sess.Close)

	app := httpapi.NewApp(config.Load(), cart.New(), cat, sess, apiClient)
	h := httpapi.NewRouter(app)

	post := func(path, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		if body != "" {
			r.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}
	get := func(path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	// select an option, bump the quantity, add to cart
	if w := post("/products/p1/selection", `{"option_id":"optA"}`); w.Code != http.StatusOK {
		t.Fatalf("select: %d %s", w.Code, w.Body.String())
	}
	if w := post("/products/p1/selection", `{"quantity":2}`); w.Code != http.StatusOK {
		t.Fatalf("set quantity: %d", w.Code)
	}
	if w := post("/cart/items", `{"product_id":"p1"}`); w.Code != http.StatusOK {
		t.Fatalf("add to cart: %d %s", w.Code, w.Body.String())
	}

	// a malformed frame then a real one: only the real one surfaces
	conn.frames <- []byte(`{not json`)
	conn.frames <- []byte(`{"event":"product_created","data":{"product_id":"p2","product_name":"brand new"}}`)

	deadline := time.Now().Add(2 * time.Second)
	var notes []map[string]any
	for time.Now().Before(deadline) {
		w := get("/notifications")
		notes = nil
		_ = json.Unmarshal(w.Body.Bytes(), &notes)
		if len(notes) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(notes) != 1 || notes[0]["body"] != "brand new" {
		t.Fatalf("expected one product notification, got %+v", notes)
	}

	// view navigates, dismiss clears, cart is untouched throughout
	if w := post("/notifications/product/view", ""); w.Code != http.StatusOK {
		t.Fatalf("view: %d", w.Code)
	}
	if w := post("/notifications/product/dismiss", ""); w.Code != http.StatusNoContent {
		t.Fatalf("dismiss: %d", w.Code)
	}
	var view struct {
		Lines []model.CartLine `json:"lines"`
		Total int64            `json:"total"`
	}
	w := get("/cart")
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if len(view.Lines) != 1 || view.Total != 3000 {
		t.Fatalf("push events must not touch the cart: %+v", view)
	}

	// checkout clears the cart
	if w := post("/cart/checkout", ""); w.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	w = get("/cart")
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart after checkout: %+v", view)
	}

	// channel stayed connected through the malformed frame
	var status struct {
		State string `json:"state"`
	}
	w = get("/push/status")
	_ = json.Unmarshal(w.Body.Bytes(), &status)
	if status.State != "connected" {
		t.Fatalf("expected connected, got %q", status.State)
	}
}
