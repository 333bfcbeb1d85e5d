package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitos/hyper_pnl/internal/domain"
	"go.uber.org/zap"
)

// Analytics is the part of the analytics service the API serves.
type Analytics interface {
	Trades(ctx context.Context, q domain.Query) ([]domain.Trade, error)
	PositionHistory(ctx context.Context, q domain.Query) ([]domain.PositionState, error)
	PnL(ctx context.Context, q domain.Query) (*domain.PnLData, error)
	Leaderboard(ctx context.Context, q domain.Query) ([]domain.LeaderboardEntry, error)
}

type Options struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	analytics Analytics
	users     domain.UserRegistry
	logger    *zap.Logger
}

func NewServer(opts Options, analytics Analytics, users domain.UserRegistry, logger *zap.Logger) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		analytics: analytics,
		users:     users,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	// Analytics
	s.router.HandleFunc("GET /api/trades", s.handleTrades)
	s.router.HandleFunc("GET /api/positions", s.handlePositions)
	s.router.HandleFunc("GET /api/pnl", s.handlePnL)
	s.router.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	// Tracked users
	s.router.HandleFunc("GET /api/tracked-users", s.handleListTrackedUsers)
	s.router.HandleFunc("POST /api/tracked-users", s.handleAddTrackedUser)
	s.router.HandleFunc("DELETE /api/tracked-users/{address}", s.handleRemoveTrackedUser)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
}

// Handler returns the routed API with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.router)
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(started)))
	})
}
