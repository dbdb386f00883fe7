package node

import (
	"net/http"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/metrics"
	"github.com/bft-labs/modeswitch/internal/ports"
	"github.com/bft-labs/modeswitch/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// ControllerManager starts and stops controllers on behalf of the node.
type ControllerManager = ports.ControllerManager

// Types shared with the node's internals.
type (
	// SwitchRequest is what the node asks a ControllerManager to do.
	SwitchRequest = domain.SwitchRequest

	// SwitchReport is what a ControllerManager confirms it did.
	SwitchReport = domain.SwitchReport

	// SwitchResult describes one switch attempt.
	SwitchResult = domain.SwitchResult

	// Outcome classifies a SwitchResult.
	Outcome = domain.Outcome

	// Snapshot is a point-in-time view of the node.
	Snapshot = domain.Snapshot

	// Metrics is the node's Prometheus collector set.
	Metrics = metrics.Metrics
)

// Switch outcomes.
const (
	OutcomeApplied        = domain.OutcomeApplied
	OutcomeRejected       = domain.OutcomeRejected
	OutcomeNeedsReconcile = domain.OutcomeNeedsReconcile
)

// NewMetrics creates a collector set on its own registry, suitable for
// WithMetrics.
func NewMetrics() *Metrics {
	return metrics.New()
}

// Option configures optional behavior of a Node.
type Option func(*options)

type options struct {
	httpClient   ports.HTTPClient
	manager      ports.ControllerManager
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	metrics      *metrics.Metrics
}

func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     log.NewNoopLogger(),
	}
}

// WithHTTPClient sets the HTTP client used to reach the controller manager.
// If not provided, a client with Config.HTTPTimeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithControllerManager replaces the HTTP controller manager client.
// Config.ManagerURL and Config.DryRun are ignored when it is set.
func WithControllerManager(manager ControllerManager) Option {
	return func(o *options) {
		o.manager = manager
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for node events.
// Events are called synchronously; handlers must return quickly and must
// not call back into the node.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the node is configured.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetrics records node metrics on m instead of a private collector set.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
