package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/delali3/era-store-sub002/internal/address"
	"github.com/delali3/era-store-sub002/internal/cart"
	"github.com/delali3/era-store-sub002/internal/checkout"
	"github.com/delali3/era-store-sub002/internal/payment"
	"github.com/delali3/era-store-sub002/internal/wishlist"
	"github.com/delali3/era-store-sub002/pkg/health"
	"github.com/delali3/era-store-sub002/pkg/middleware"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	CartService     *cart.Service
	WishlistService *wishlist.Service
	AddressSelector *address.Selector
	Orchestrator    *checkout.Orchestrator
	HostedGateway   *payment.HostedGateway
	HealthHandler   *health.Handler
	TokenVerifier   *middleware.TokenVerifier
	Logger          *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", deps.HealthHandler.LivenessHandler())
	r.Get("/health/ready", deps.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Payment provider callbacks are authenticated by the provider, not by
	// user tokens, so they sit outside the API auth group.
	if deps.HostedGateway != nil {
		webhookHandler := NewPaymentWebhookHandler(deps.HostedGateway, logger)
		r.Post("/webhooks/payment", webhookHandler.Handle)
	}

	cartHandler := NewCartHandler(deps.CartService, logger)
	wishlistHandler := NewWishlistHandler(deps.WishlistService, logger)
	addressHandler := NewAddressHandler(deps.AddressSelector, logger)
	checkoutHandler := NewCheckoutHandler(deps.Orchestrator, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(deps.TokenVerifier))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.Get)
			r.Post("/toggle", wishlistHandler.Toggle)
			r.Delete("/items/{productID}", wishlistHandler.Remove)
		})

		r.Route("/recently-viewed", func(r chi.Router) {
			r.Get("/", wishlistHandler.RecentlyViewed)
			r.Post("/", wishlistHandler.RecordView)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", addressHandler.Snapshot)
			r.Post("/", addressHandler.Add)
			r.Post("/load", addressHandler.Load)

			r.Put("/{addressID}", addressHandler.Update)
			r.Delete("/{addressID}", addressHandler.Delete)
			r.Post("/{addressID}/default", addressHandler.SetDefault)
			r.Post("/{addressID}/select", addressHandler.Select)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Start)
			r.Get("/", checkoutHandler.Session)
			r.Delete("/", checkoutHandler.Cancel)

			r.Get("/shipping-methods", checkoutHandler.ShippingMethods)
			r.Post("/shipping", checkoutHandler.SubmitShipping)
			r.Post("/payment", checkoutHandler.SubmitPayment)
			r.Post("/back", checkoutHandler.Back)
			r.Post("/place", checkoutHandler.PlaceOrder)
			r.Get("/result", checkoutHandler.Result)
		})
	})

	return r
}
