package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tallyloyalty/tally/internal/handler"
	"github.com/tallyloyalty/tally/internal/middleware"
	"github.com/tallyloyalty/tally/internal/push"
	"github.com/tallyloyalty/tally/internal/store"
	ws "github.com/tallyloyalty/tally/internal/websocket"
)

// Config holds the server's wiring configuration.
type Config struct {
	JWTSecret     []byte
	SecureCookies bool
	Push          push.Config
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	voucherH     *handler.VoucherHandler
	balanceH     *handler.BalanceHandler
	transactionH *handler.TransactionHandler
	pushH        *handler.PushHandler
	jwtSecret    []byte
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	voucherStore := store.NewVoucherStore(db)
	balanceStore := store.NewBalanceStore(db)
	transactionStore := store.NewTransactionStore(db)
	pushStore := store.NewPushStore(db)

	var pushSvc *push.Service
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, cfg.JWTSecret, cfg.SecureCookies, logger.With("component", "auth")),
		voucherH:     handler.NewVoucherHandler(voucherStore, hub, pushSvc, logger.With("component", "voucher")),
		balanceH:     handler.NewBalanceHandler(balanceStore, logger.With("component", "balance")),
		transactionH: handler.NewTransactionHandler(transactionStore, logger.With("component", "transaction")),
		pushH:        pushH,
		jwtSecret:    cfg.JWTSecret,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.jwtSecret)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Merchant routes
	mux.Handle("POST /api/vouchers", middleware.RequireMerchant(http.HandlerFunc(s.voucherH.Issue)))
	mux.Handle("GET /api/vouchers", middleware.RequireMerchant(http.HandlerFunc(s.voucherH.List)))
	mux.Handle("GET /api/vouchers/{id}", middleware.RequireMerchant(http.HandlerFunc(s.voucherH.Get)))

	// Customer routes
	mux.Handle("POST /api/vouchers/redeem", middleware.RequireCustomer(http.HandlerFunc(s.voucherH.Redeem)))
	mux.Handle("GET /api/balance", middleware.RequireCustomer(http.HandlerFunc(s.balanceH.Get)))

	mux.HandleFunc("GET /api/transactions", s.transactionH.List)

	// Push notification routes (only when VAPID keys are configured)
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}

	// Live event stream for dashboards
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
