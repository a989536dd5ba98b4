package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterDeps bundles everything the HTTP surface needs. Webhook routes
// are only mounted when a webhook secret is configured.
type RouterDeps struct {
	Orders         *OrdersHandler
	Admin          *AdminHandler
	Webhook        *WebhookHandler
	Auth           *AuthMiddleware
	Health         func(ctx context.Context) error
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(r.Context()); err != nil {
				respondError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.RequireUser)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", deps.Orders.CreateOrder)
			r.Get("/my", deps.Orders.ListMyOrders)
			r.Get("/{order_id}", deps.Orders.GetOrder)
			r.Post("/{order_id}/sync-status", deps.Orders.SyncStatus)
			r.Post("/{order_id}/cancel", deps.Orders.CancelOrder)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(deps.Auth.RequireAdmin)
			r.Get("/", deps.Admin.ListOrders)
			r.Post("/{order_id}/mark-shipped", deps.Admin.MarkShipped)
			r.Post("/{order_id}/mark-delivered", deps.Admin.MarkDelivered)
			r.Post("/{order_id}/force-sync", deps.Admin.ForceSync)
			r.Post("/{order_id}/fetch-label", deps.Admin.FetchLabel)
			r.Post("/{order_id}/request-pickup", deps.Admin.RequestPickup)
		})
	})

	if deps.Webhook != nil && deps.Webhook.enabled() {
		r.Post("/shipping/{carrier}", deps.Webhook.Receive)
	}

	return otelhttp.NewHandler(r, "http.server")
}
