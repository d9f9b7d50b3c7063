package dashboard

import (
	"context"
	"net/http"
	"os"
	"time"

	"breaktime-tracker-bot/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server exposes the read-only dashboard API over the aggregation
// service. It never writes records; the bot is the only writer.
type Server struct {
	agg    *service.AggregationService
	logger *logrus.Logger
	http   *http.Server
}

func NewServer(addr, staticDir string, agg *service.AggregationService) *Server {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	s := &Server{agg: agg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/realtime", s.handleRealtime)
		r.Get("/distribution/today", s.handleDistribution)
		r.Get("/agents", s.handleAgents)
		r.Get("/hourly/today", s.handleHourly)
		r.Get("/trend", s.handleTrend)
		r.Get("/history/logs", s.handleHistoryLogs)
		r.Get("/export/csv", s.handleExportCSV)
	})

	if staticDir != "" {
		if _, err := os.Stat(staticDir); err == nil {
			fs := http.FileServer(http.Dir(staticDir))
			r.Handle("/*", fs)
		} else {
			logger.WithField("dir", staticDir).Warn("Static dir not found, serving API only")
		}
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Run blocks serving HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.WithField("addr", s.http.Addr).Info("Dashboard server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
