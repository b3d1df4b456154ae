package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/api/rest"
	"github.com/KevinKickass/OpenInstrumentCore/internal/api/websocket"
	"github.com/KevinKickass/OpenInstrumentCore/internal/config"
	"github.com/KevinKickass/OpenInstrumentCore/internal/instrument"
	"github.com/KevinKickass/OpenInstrumentCore/internal/interfaces"
	"github.com/KevinKickass/OpenInstrumentCore/internal/session"
	"github.com/KevinKickass/OpenInstrumentCore/internal/storage"
	"github.com/KevinKickass/OpenInstrumentCore/internal/stream"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type LifecycleManager struct {
	config  *config.Config
	session *session.Session
	storage *storage.PostgresClient
	hub     *websocket.Hub
	poller  *stream.Poller
	logger  *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState
	lastErr      error

	listenersMu     sync.RWMutex
	statusListeners []chan SystemStatus

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager wires the server around an open session. db may be
// nil, which disables snapshot persistence.
func NewLifecycleManager(
	sess *session.Session,
	db *storage.PostgresClient,
	cfg *config.Config,
	logger *zap.Logger,
) *LifecycleManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := websocket.NewHub(logger)

	return &LifecycleManager{
		config:          cfg,
		session:         sess,
		storage:         db,
		hub:             hub,
		poller:          stream.NewPoller(sess, hub, cfg.Stream.PollInterval, cfg.Stream.Recording, logger),
		logger:          logger,
		currentState:    StateInitializing,
		shutdownChan:    make(chan struct{}),
		statusListeners: make([]chan SystemStatus, 0),
	}
}

// Start connects the configured devices and starts the hub, the stream
// poller and the REST server.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting OpenInstrumentCore")

	if lm.storage != nil {
		if err := lm.storage.EnsureSchema(ctx); err != nil {
			lm.setError(err)
			return err
		}
	}

	lm.connectDevices(ctx)

	go lm.hub.Run()

	if lm.config.Stream.Enabled {
		if err := lm.poller.Start(); err != nil {
			lm.setError(fmt.Errorf("failed to start stream poller: %w", err))
			return err
		}
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)
	lm.broadcastStatus()

	lm.logger.Info("System started successfully",
		zap.String("http_address", lm.restServer.Addr()),
		zap.Int("devices", len(lm.session.Devices())),
		zap.Bool("stream", lm.config.Stream.Enabled),
		zap.Bool("persistence", lm.storage != nil))

	return nil
}

// connectDevices connects the devices listed in the configuration. A
// device that fails to connect is logged and skipped.
func (lm *LifecycleManager) connectDevices(ctx context.Context) {
	for _, dc := range lm.config.Toolkit.Devices {
		d, err := lm.session.ConnectDevice(ctx, dc.Serial, dc.Interface)
		if err != nil {
			lm.logger.Error("Failed to connect device",
				zap.String("serial", dc.Serial),
				zap.Error(err))
			continue
		}
		lm.hub.Broadcast(websocket.NewInstrumentMessage(websocket.MessageTypeDeviceConnected,
			d.Name(), instrument.KindDevice, d.Serial(), d.DeviceType()))
	}
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.hub)
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system. Later calls return nil.
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)
		lm.broadcastStatus()

		shutdownErr = lm.gracefulShutdown(ctx)
		if shutdownErr != nil {
			lm.setError(shutdownErr)
		}

		lm.setState(StateStopped)
		lm.broadcastStatus()

		close(lm.shutdownChan)
	})

	return shutdownErr
}

// gracefulShutdown stops the components in reverse start order. The
// poller stops before the session closes.
func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var err error

	if lm.restServer != nil {
		timeout := lm.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		if serr := lm.restServer.Shutdown(shutdownCtx); serr != nil {
			err = multierr.Append(err, fmt.Errorf("rest api shutdown failed: %w", serr))
		}
		cancel()
	}

	lm.poller.Stop()
	lm.hub.Stop()

	if serr := lm.session.Close(); serr != nil {
		err = multierr.Append(err, fmt.Errorf("session close failed: %w", serr))
	}

	if lm.storage != nil {
		lm.storage.Close()
	}

	if err == nil {
		lm.logger.Info("Graceful shutdown completed")
	}
	return err
}

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	if lm.currentState == state {
		return
	}
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))
	lm.stateMu.Lock()
	lm.currentState = StateError
	lm.lastErr = err
	lm.stateMu.Unlock()
	lm.broadcastStatus()
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState
	lm.stateMu.RUnlock()

	return interfaces.SystemStatus{
		State:            state.String(),
		DeviceCount:      len(lm.session.Devices()),
		ModuleCount:      len(lm.session.Modules()),
		StreamRunning:    lm.poller.IsRunning(),
		Persistence:      lm.storage != nil,
		WebSocketClients: lm.hub.GetClientCount(),
	}
}

func (lm *LifecycleManager) getStatusInternal() SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	status := SystemStatus{
		State:     lm.currentState,
		Timestamp: time.Now().Unix(),
	}
	if lm.lastErr != nil {
		status.Error = lm.lastErr.Error()
	}
	return status
}

// broadcastStatus sends the status to the listeners and websocket
// clients.
func (lm *LifecycleManager) broadcastStatus() {
	status := lm.getStatusInternal()

	lm.hub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, status))

	lm.listenersMu.RLock()
	defer lm.listenersMu.RUnlock()

	for _, listener := range lm.statusListeners {
		select {
		case listener <- status:
		default:
			// Channel full, skip
		}
	}
}

// SubscribeStatus subscribes to status updates
func (lm *LifecycleManager) SubscribeStatus() chan SystemStatus {
	ch := make(chan SystemStatus, 10)

	lm.listenersMu.Lock()
	lm.statusListeners = append(lm.statusListeners, ch)
	lm.listenersMu.Unlock()

	return ch
}

// UnsubscribeStatus unsubscribes from status updates
func (lm *LifecycleManager) UnsubscribeStatus(ch chan SystemStatus) {
	lm.listenersMu.Lock()
	defer lm.listenersMu.Unlock()

	for i, listener := range lm.statusListeners {
		if listener == ch {
			lm.statusListeners = append(lm.statusListeners[:i], lm.statusListeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (lm *LifecycleManager) Session() *session.Session {
	return lm.session
}

func (lm *LifecycleManager) Snapshots() storage.SnapshotStore {
	if lm.storage == nil {
		return nil
	}
	return lm.storage
}

func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

func (lm *LifecycleManager) Hub() *websocket.Hub {
	return lm.hub
}
