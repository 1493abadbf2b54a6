package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/usecase"
)

// Server hosts the gateway-facing endpoints (ResultURL notification, the
// success/fail redirect pages), health, metrics and the JWT-protected admin
// API. It is the only HTTP surface of the process and is assumed to run as a
// single instance.
type Server struct {
	paymentUC usecase.PaymentUseCase
	subUC     *usecase.SubscriptionUseCase
	statsUC   *usecase.StatsUseCase
	auth      *AuthManager
	adminPass string
	botName   string
	server    *http.Server
	log       *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	subUC *usecase.SubscriptionUseCase,
	statsUC *usecase.StatsUseCase,
	auth *AuthManager,
	adminPass string,
	botName string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		paymentUC: paymentUC,
		subUC:     subUC,
		statsUC:   statsUC,
		auth:      auth,
		adminPass: adminPass,
		botName:   botName,
		log:       &srvLog,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceID, requestLog(s.log), recoverer(s.log))

	r.Post("/robokassa/result", s.handleResult)
	r.Get("/robokassa/success", s.handleSuccessRedirect)
	r.Get("/robokassa/fail", s.handleFailRedirect)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/stats", s.handleAdminStats)
			r.Post("/import", s.handleAdminImport)
		})
	})
	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
