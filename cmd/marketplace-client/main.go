// Package main boots the marketplace buyer client: the local UI surface plus
// the realtime session (push channel and notification reconciler).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/marketplace-client/internal/api"
	"github.com/fairyhunter13/marketplace-client/internal/cart"
	"github.com/fairyhunter13/marketplace-client/internal/catalog"
	"github.com/fairyhunter13/marketplace-client/internal/config"
	httpapi "github.com/fairyhunter13/marketplace-client/internal/http"
	"github.com/fairyhunter13/marketplace-client/internal/obs"
	"github.com/fairyhunter13/marketplace-client/internal/push"
	"github.com/fairyhunter13/marketplace-client/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	obs.InitLogger(slog.LevelInfo)
	obs.Logger.Info("client_starting")

	role, err := session.RoleFromToken(cfg.SessionToken)
	if err != nil {
		obs.Logger.Error("session_token_invalid", "error", err)
		os.Exit(1)
	}

	apiClient := api.New(cfg.APIBaseURL,
		api.WithToken(cfg.SessionToken),
		api.WithTimeout(cfg.APITimeout),
	)

	cat := catalog.New()
	fetchCtx, cancelFetch := context.WithTimeout(context.Background(), cfg.APITimeout)
	products, err := apiClient.ListProducts(fetchCtx)
	cancelFetch()
	if err != nil {
		// realtime and cart editing still work from an empty catalog; a
		// later /products/refresh can recover
		obs.Logger.Warn("catalog_fetch_failed", "error", err)
	} else {
		cat.Replace(products)
		obs.Logger.Info("catalog_loaded", "products", len(products))
	}

	sess := session.New(session.Config{
		Role:         role,
		PushURL:      cfg.PushURL,
		SessionToken: cfg.SessionToken,
		Backoff:      cfg.PushBackoff,
		MaxRetries:   cfg.PushMaxRetries,
		Buffer:       cfg.PushBuffer,
		DismissAfter: cfg.NotifyDismissAfter,
	}, &push.WebsocketDialer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Start(ctx)

	app := httpapi.NewApp(cfg, cart.New(), cat, sess, apiClient)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr, "role", string(role))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	sess.Close()

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("client_stopped")
}
