package rest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/config"
	"github.com/KevinKickass/OpenInstrumentCore/internal/interfaces"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	lm       interfaces.LifecycleManager
	logger   *zap.Logger
	server   *http.Server
	wsHub    *websocket.Hub
	timeouts config.TimeoutsConfig
	listener net.Listener
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:   gin.New(),
		lm:       lm,
		logger:   logger,
		wsHub:    wsHub,
		timeouts: cfg.Timeouts,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.logger.Info("Starting REST API server", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.POST("/shutdown", s.shutdown)
		}

		// ==================== INSTRUMENTS ====================
		instruments := v1.Group("/instruments")
		{
			instruments.GET("", s.listInstruments)
			instruments.GET("/:name/snapshot", s.getSnapshot)
			instruments.GET("/:name/readable", s.getReadableSnapshot)
			instruments.GET("/:name/paths", s.listParameterPaths)
			instruments.GET("/:name/parameters/*path", s.getParameter)
			instruments.PUT("/:name/parameters/*path", s.setParameter)
			instruments.POST("/:name/subscriptions", s.subscribeParameter)
			instruments.DELETE("/:name/subscriptions/*path", s.unsubscribeParameter)
			instruments.POST("/:name/wait", s.waitForState)
		}

		// ==================== SNAPSHOTS ====================
		snapshots := v1.Group("/snapshots")
		{
			snapshots.GET("", s.listSnapshots)
			snapshots.GET("/:id", s.getStoredSnapshot)
			snapshots.DELETE("/:id", s.deleteStoredSnapshot)
		}

		// ==================== DEVICES ====================
		devices := v1.Group("/devices")
		{
			devices.GET("", s.listDevices)
			devices.POST("", s.connectDevice)
			devices.POST("/:serial/qccs", s.enableQCCSMode)

			devices.GET("/:serial/qas/:index/crosstalk", s.getCrosstalkMatrix)
			devices.PUT("/:serial/qas/:index/crosstalk", s.setCrosstalkMatrix)
			devices.GET("/:serial/qas/:index/delay", s.getAdjustedDelay)
			devices.PUT("/:serial/qas/:index/delay", s.setAdjustedDelay)

			awg := devices.Group("/:serial/awgs/:index")
			{
				awg.POST("/sequencer", s.loadSequencerProgram)
				awg.POST("/enable", s.enableSequencer)
				awg.POST("/wait", s.waitSequencer)
				awg.PUT("/waveforms", s.writeWaveforms)
				awg.GET("/waveforms", s.readWaveforms)
				awg.GET("/commandtable", s.loadCommandTable)
				awg.PUT("/commandtable", s.uploadCommandTable)
				awg.GET("/commandtable/status", s.commandTableStatus)
				awg.GET("/commandtable/schema", s.commandTableSchema)
			}
		}

		// ==================== MODULES ====================
		modules := v1.Group("/modules")
		{
			modules.GET("", s.listModules)
			modules.POST("", s.createModule)
			modules.DELETE("/:name", s.closeModule)
			modules.POST("/:name/execute", s.executeModule)
			modules.POST("/:name/wait", s.waitModule)
			modules.POST("/:name/subscriptions", s.subscribeModule)
			modules.DELETE("/:name/subscriptions/*path", s.unsubscribeModule)
		}

		// ==================== WEBSOCKET ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
