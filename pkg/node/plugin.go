package node

import (
	"context"

	"github.com/bft-labs/modeswitch/pkg/log"
)

// Plugin extends a node with optional behavior.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called when the node is configured. Long-running work
	// belongs in a goroutine bound to ctx. Initialize runs with the node
	// locked and must not set parameters itself.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called when the node shuts down.
	Shutdown(ctx context.Context) error
}

// Parameters is the view of node parameters available to plugins.
type Parameters interface {
	// SetParameter sets a node parameter. Lifecycle access rights apply.
	SetParameter(ctx context.Context, name, value string) error

	// Parameter returns the formatted value of a parameter.
	Parameter(name string) (string, bool)
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	ConfigPath string
	StatusDir  string
	Logger     log.Logger
	Parameters Parameters
}
