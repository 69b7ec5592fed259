package router

import (
	"net/http"

	"marketplace-ledger/internal/handlers"
	"marketplace-ledger/internal/metrics"
	"marketplace-ledger/internal/middleware"
	"marketplace-ledger/internal/models"
	"marketplace-ledger/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Dependencies struct {
	Marketplace handlers.Marketplace
	Wallet      handlers.Wallet
	Auth        *services.AuthService
	RateLimit   rate.Limit
	RateBurst   int
}

// SetupRouter returns the API wrapped in CORS. CORS sits outside the mux so
// preflight requests are answered even though no route accepts OPTIONS.
func SetupRouter(deps Dependencies, logger zerolog.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Marketplace, logger)
	authorityHandler := handlers.NewAuthorityHandler(deps.Marketplace, logger)
	productHandler := handlers.NewProductHandler(deps.Marketplace, logger)
	orderHandler := handlers.NewOrderHandler(deps.Marketplace, logger)
	escrowHandler := handlers.NewEscrowHandler(deps.Marketplace, logger)
	breakerHandler := handlers.NewBreakerHandler(deps.Marketplace, logger)
	walletHandler := handlers.NewWalletHandler(deps.Wallet, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(deps.RateLimit, deps.RateBurst)

	r.Use(middleware.ErrorHandling(logger))
	r.Use(middleware.PerformanceMonitoring(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(rateLimiter.Middleware())

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RequestValidation())

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Authentication(deps.Auth.Authenticate, logger))

	adminOnly := middleware.RequireRole(deps.Marketplace.RoleOf, models.RoleAdmin)

	protected.HandleFunc("/authority/requests", authorityHandler.Request).Methods("POST")
	protected.Handle("/authority/requests", adminOnly(http.HandlerFunc(authorityHandler.ListRequests))).Methods("GET")
	protected.HandleFunc("/authority/requests/{index:[0-9]+}", authorityHandler.GetRequest).Methods("GET")
	protected.HandleFunc("/authority/grants", authorityHandler.Grant).Methods("POST")
	protected.HandleFunc("/authority/roles/{identity}", authorityHandler.GetRole).Methods("GET")

	protected.HandleFunc("/stores", authorityHandler.ListStores).Methods("GET")
	protected.HandleFunc("/stores/{identity}/products", productHandler.GetByOwner).Methods("GET")

	protected.HandleFunc("/products", productHandler.List).Methods("POST")
	protected.HandleFunc("/products", productHandler.GetAll).Methods("GET")
	protected.HandleFunc("/products/{id:[0-9]+}", productHandler.Get).Methods("GET")

	protected.HandleFunc("/orders", orderHandler.Buy).Methods("POST")
	protected.HandleFunc("/orders/{id:[0-9]+}", orderHandler.Get).Methods("GET")

	protected.HandleFunc("/escrow/balance", escrowHandler.GetBalance).Methods("GET")
	protected.HandleFunc("/escrow/withdrawals", escrowHandler.Withdraw).Methods("POST")

	protected.HandleFunc("/breaker", breakerHandler.Status).Methods("GET")
	protected.HandleFunc("/breaker/toggle", breakerHandler.Toggle).Methods("POST")

	protected.HandleFunc("/wallet", walletHandler.GetBalance).Methods("GET")
	protected.HandleFunc("/wallet/history", walletHandler.GetHistory).Methods("GET")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return middleware.CORS()(r)
}
