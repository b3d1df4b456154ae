package interfaces

import (
	"context"

	"github.com/KevinKickass/OpenInstrumentCore/internal/config"
	"github.com/KevinKickass/OpenInstrumentCore/internal/session"
	"github.com/KevinKickass/OpenInstrumentCore/internal/storage"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State            string `json:"state"`
	DeviceCount      int    `json:"device_count"`
	ModuleCount      int    `json:"module_count"`
	StreamRunning    bool   `json:"stream_running"`
	Persistence      bool   `json:"persistence"`
	WebSocketClients int    `json:"websocket_clients"`
}

type LifecycleManager interface {
	Config() *config.Config
	Session() *session.Session
	// Snapshots returns nil when persistence is disabled.
	Snapshots() storage.SnapshotStore
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
