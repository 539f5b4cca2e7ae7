package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/infra/metrics"
	red "marketplace-payments/internal/infra/redis"
	"marketplace-payments/internal/usecase"
)

type Agents interface {
	Register(ctx context.Context, userID, phone string, packageID *string) (*model.Agent, *model.Payment, error)
	Approve(ctx context.Context, agentID string) (*model.Agent, error)
	Me(ctx context.Context, userID string) (*model.Agent, error)
	Packages(ctx context.Context) ([]*model.AgentPackage, error)
	Commissions(ctx context.Context, userID string, limit, offset int) ([]*model.Commission, error)
	CreateBusinessForOwner(ctx context.Context, agentUserID string, in usecase.NewBusinessInput) (*model.Business, *model.Payment, error)
}

type BusinessRequests interface {
	Submit(ctx context.Context, userID string, in usecase.SubmitBusinessRequest) (*model.BusinessRequest, *model.Payment, error)
	CompleteFromRequest(ctx context.Context, agentUserID, requestID string) (*model.Business, error)
	Reject(ctx context.Context, agentUserID, requestID string) (*model.BusinessRequest, error)
	ListForAgent(ctx context.Context, agentUserID string, status *model.BusinessRequestStatus) ([]*model.BusinessRequest, error)
}

type Subscriptions interface {
	Plans(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Purchase(ctx context.Context, userID, planID, phone string) (*model.Subscription, *model.Payment, error)
	ForOwner(ctx context.Context, userID string) (*model.Subscription, error)
}

type Promotions interface {
	Create(ctx context.Context, userID string, in usecase.CreatePromotion) (*model.Promotion, *model.Payment, error)
	Approve(ctx context.Context, id string) (*model.Promotion, error)
	Reject(ctx context.Context, id string) (*model.Promotion, error)
	Pause(ctx context.Context, userID, id string) (*model.Promotion, error)
	Resume(ctx context.Context, userID, id string) (*model.Promotion, error)
}

type Wallets interface {
	Packages(ctx context.Context) ([]*model.CoinPackage, error)
	BuyCoins(ctx context.Context, userID, packageID, phone string) (*model.Payment, error)
	Balance(ctx context.Context, userID string) (*model.Wallet, error)
}

type Orders interface {
	Pay(ctx context.Context, userID, orderID, phone string) (*model.Payment, error)
}

type Catalog interface {
	SavePlan(ctx context.Context, plan *model.SubscriptionPlan) error
	Plans(ctx context.Context) ([]*model.SubscriptionPlan, error)
}

// Deps are the use cases behind the HTTP surface.
type Deps struct {
	Payments         usecase.PaymentUseCase
	Users            usecase.UserUseCase
	Stats            usecase.StatsUseCase
	Agents           Agents
	BusinessRequests BusinessRequests
	Subscriptions    Subscriptions
	Promotions       Promotions
	Wallets          Wallets
	Orders           Orders
	Catalog          Catalog
	Limiter          Limiter
}

type Server struct {
	deps   Deps
	auth   *AuthManager
	cfg    config.HTTPConfig
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(cfg config.HTTPConfig, deps Deps, auth *AuthManager, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{deps: deps, auth: auth, cfg: cfg, log: &l}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(timeout))

		// provider callback; only triggers a status poll, the body is not trusted
		r.Post("/webhooks/harakapay", s.handleGatewayCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Authenticate)

			r.Get("/users/me", s.handleGetMe)
			r.Post("/users/me", s.handleRegisterMe)

			r.With(RequireRole(RoleAdmin)).Post("/payments", s.handleInitiatePayment)
			r.Get("/payments", s.handleListMyPayments)
			r.Get("/payments/{id}", s.handleGetPayment)
			r.With(PerUserLimit(s.deps.Limiter, red.RefreshKey, s.cfg.RefreshLimit, s.cfg.RefreshWindow, s.log)).
				Post("/payments/orders/{orderId}/refresh", s.handleRefresh)

			r.Post("/agents", s.handleRegisterAgent)
			r.Get("/agents/packages", s.handleAgentPackages)
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(RoleAgent))
				r.Get("/agents/me", s.handleAgentMe)
				r.Get("/agents/me/commissions", s.handleAgentCommissions)
				r.Post("/agents/me/businesses", s.handleAgentCreateBusiness)
				r.Get("/agents/me/business-requests", s.handleAgentListRequests)
				r.Post("/agents/me/business-requests/{id}/approve", s.handleAgentApproveRequest)
				r.Post("/agents/me/business-requests/{id}/reject", s.handleAgentRejectRequest)
			})

			r.Post("/business-requests", s.handleSubmitBusinessRequest)

			r.Get("/subscriptions/plans", s.handleListPlans)
			r.Get("/subscriptions/me", s.handleMySubscription)
			r.Post("/subscriptions", s.handlePurchaseSubscription)

			r.Post("/promotions", s.handleCreatePromotion)
			r.Post("/promotions/{id}/pause", s.handlePausePromotion)
			r.Post("/promotions/{id}/resume", s.handleResumePromotion)

			r.Get("/coins/packages", s.handleCoinPackages)
			r.Get("/coins/wallet", s.handleWallet)
			r.Post("/coins/purchase", s.handleBuyCoins)

			r.Post("/orders/{id}/pay", s.handlePayOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(RoleAdmin))
				r.Get("/payments/outstanding", s.handleOutstanding)
				r.Post("/payments/{id}/redispatch", s.handleRedispatch)
				r.Get("/gateway/balance", s.handleGatewayBalance)
				r.Get("/stats", s.handleStats)
				r.Post("/agents/{id}/approve", s.handleApproveAgent)
				r.Post("/promotions/{id}/approve", s.handleApprovePromotion)
				r.Post("/promotions/{id}/reject", s.handleRejectPromotion)
				r.Get("/plans", s.handleAdminListPlans)
				r.Put("/plans/{id}", s.handleSavePlan)
			})
		})
	})
	return r
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	port := s.cfg.Port
	if port == 0 {
		port = 8080
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
