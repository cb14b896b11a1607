// Package statushttp exposes read-only runtime state over HTTP: portfolio,
// recent orders, strategy weights and the cycle counter. It never
// mutates anything.
package statushttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"drift/internal/ledger"
	"drift/internal/logger"

	"github.com/gin-gonic/gin"
)

// CycleCounter reports engine progress.
type CycleCounter interface {
	Cycles() int64
}

// Server is the read-only status API.
type Server struct {
	addr    string
	store   *ledger.Store
	engine  CycleCounter
	router  *gin.Engine
	httpSrv *http.Server
	started time.Time
}

// NewServer builds the status server. Store must be set; engine may be
// nil (cycle counter reads as zero).
func NewServer(addr string, store *ledger.Store, engine CycleCounter) (*Server, error) {
	if store == nil {
		return nil, errors.New("ledger store required")
	}
	if addr == "" {
		addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:    addr,
		store:   store,
		engine:  engine,
		router:  router,
		started: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api/status")
	api.GET("/health", s.handleHealth)
	api.GET("/portfolio", s.handlePortfolio)
	api.GET("/orders", s.handleOrders)
	api.GET("/weights", s.handleWeights)
	api.GET("/performance", s.handlePerformance)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("status server listening on %s", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	var cycles int64
	if s.engine != nil {
		cycles = s.engine.Cycles()
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Truncate(time.Second).String(),
		"cycles": cycles,
	})
}

func (s *Server) handlePortfolio(c *gin.Context) {
	snap, ok, err := s.store.LatestSnapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot recorded yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": snap})
}

func (s *Server) handleOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := s.store.ListOrders(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleWeights(c *gin.Context) {
	weights, err := s.store.StrategyWeights(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"weights": weights})
}

func (s *Server) handlePerformance(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 || days > 365 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)
	stats, err := s.store.PortfolioStatsSince(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	perf, err := s.store.StrategyPerformanceSince(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": stats, "strategies": perf})
}
