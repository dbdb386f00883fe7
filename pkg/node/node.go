package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/modeswitch/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/modeswitch/internal/adapters/http"
	"github.com/bft-labs/modeswitch/internal/adapters/sim"
	"github.com/bft-labs/modeswitch/internal/app"
	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/metrics"
	"github.com/bft-labs/modeswitch/internal/params"
	"github.com/bft-labs/modeswitch/internal/ports"
	"github.com/bft-labs/modeswitch/internal/transition"
	"github.com/bft-labs/modeswitch/pkg/lifecycle"
	"github.com/bft-labs/modeswitch/pkg/log"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// ParamControlMode is the parameter holding the control mode. While the
// node is active, setting it switches controllers.
const ParamControlMode = "control_mode"

// ControllerParam returns the name of the parameter binding role to a
// controller. Bindings can only change before activation.
func ControllerParam(role modeswitch.Role) string {
	return "controllers." + role.String()
}

// Node is an embeddable control-mode switching node. Use New to create one,
// then Start (or Configure and Activate) to bring it up.
type Node struct {
	config    Config
	logger    ports.Logger
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	metrics   *metrics.Metrics
	plugins   []Plugin

	// mu serializes lifecycle operations and guards the coordinator while
	// no control loop owns it.
	mu         sync.Mutex
	coord      *modeswitch.Coordinator
	switcher   *app.Switcher
	params     *params.Set
	mode       *params.Parameter[modeswitch.ControlMode]
	current    modeswitch.ControlMode
	last       *domain.SwitchResult
	activation *transition.Handler

	loop atomic.Pointer[app.Loop]

	pluginsUp     bool
	pluginsCancel context.CancelFunc
}

// New creates a node in the unconfigured state.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Node, error) {
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	o := defaultOptions(httpClient)
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	manager := o.manager
	switch {
	case manager != nil:
	case cfg.DryRun:
		logger.Info("dry run: controller switches are simulated")
		manager = sim.NewControllerManager(logger)
	case cfg.ManagerURL == "":
		return nil, fmt.Errorf("%w: manager URL is required unless dry run is set", domain.ErrInvalidConfig)
	default:
		manager = httpAdapter.NewControllerManager(o.httpClient, cfg.ManagerURL, logger)
	}

	m := o.metrics
	if m == nil {
		m = metrics.New()
	}

	emitter := &eventEmitterWrapper{
		handler: o.eventHandler,
		metrics: m,
		logger:  logger,
	}
	if cfg.StatusDir != "" {
		emitter.status = fs.NewStatusFile(cfg.StatusDir)
	}

	coord, err := modeswitch.NewCoordinator(modeswitch.Config{
		FixedControllers: cfg.FixedControllers,
		Bindings:         cfg.Controllers,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	switcher := app.NewSwitcher(coord, manager, app.SwitcherConfig{
		Retries:      *cfg.SwitchRetries,
		RetryInitial: cfg.RetryInitial,
		RetryMax:     cfg.RetryMax,
	}, logger, emitter)

	n := &Node{
		config:    cfg,
		logger:    logger,
		lifecycle: app.NewLifecycle(logger, emitter),
		emitter:   emitter,
		metrics:   m,
		plugins:   o.plugins,
		coord:     coord,
		switcher:  switcher,
	}
	n.params = n.declareParameters()
	return n, nil
}

func (n *Node) declareParameters() *params.Set {
	n.mode = params.New(ParamControlMode, n.config.ControlMode,
		params.AccessRights{Unconfigured: true, Inactive: true},
		modeswitch.ParseControlMode,
		func(_, mode modeswitch.ControlMode) error {
			_, err := modeswitch.RequirementFor(mode)
			return err
		},
	)

	declared := []params.Settable{n.mode}
	for _, role := range modeswitch.AllRoles() {
		name, _ := n.coord.ControllerName(role)
		declared = append(declared, params.New(ControllerParam(role), name,
			params.AccessRights{Unconfigured: true, Inactive: true},
			func(s string) (string, error) { return strings.TrimSpace(s), nil },
			func(_, controller string) error {
				return n.coord.UpdateControllerName(role, controller)
			},
		))
	}
	return params.NewSet(declared...)
}

// Configure checks that the configured mode can be resolved, initializes
// plugins and moves the node to inactive.
func (n *Node) Configure(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.configureLocked(ctx)
}

func (n *Node) configureLocked(ctx context.Context) error {
	if err := n.lifecycle.Check(app.EventConfigure); err != nil {
		return err
	}

	if err := n.checkBindings(n.mode.Get()); err != nil {
		return err
	}

	if err := n.initPlugins(ctx); err != nil {
		return err
	}

	if err := n.lifecycle.Fire(ctx, app.EventConfigure, "Configure() called"); err != nil {
		return err
	}
	n.publishLocked()
	return nil
}

// checkBindings reports whether every role needed by mode has a controller.
func (n *Node) checkBindings(mode modeswitch.ControlMode) error {
	req, err := modeswitch.RequirementFor(mode)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	for _, role := range req.Roles() {
		if _, ok := n.coord.ControllerName(role); !ok {
			return fmt.Errorf("%w: mode %s needs a %s controller", domain.ErrInvalidConfig, mode, role)
		}
	}
	return nil
}

func (n *Node) initPlugins(ctx context.Context) error {
	if n.pluginsUp {
		return nil
	}

	pluginCtx, cancel := context.WithCancel(ctx)
	pluginCfg := PluginConfig{
		ConfigPath: n.config.ConfigPath,
		StatusDir:  n.config.StatusDir,
		Logger:     n.logger,
		Parameters: n,
	}
	for i, p := range n.plugins {
		if err := p.Initialize(pluginCtx, pluginCfg); err != nil {
			n.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			n.shutdownPlugins(ctx, n.plugins[:i])
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		n.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	n.pluginsUp = true
	n.pluginsCancel = cancel
	return nil
}

// shutdownPlugins shuts plugins down in reverse order.
func (n *Node) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			n.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			n.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

// Activate switches to the configured mode and starts the control loop.
// ctx bounds the lifetime of the loop. If either step fails the completed
// step is undone and the node stays inactive.
func (n *Node) Activate(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activateLocked(ctx)
}

func (n *Node) activateLocked(ctx context.Context) error {
	if err := n.lifecycle.Check(app.EventActivate); err != nil {
		return err
	}

	handler := transition.New(n.logger,
		transition.Step{
			Name:    "initial mode",
			Forward: n.switchInitialMode,
			Reverse: n.deactivateControllers,
		},
		transition.Step{
			Name: "control loop",
			Forward: func(context.Context) error {
				n.startLoop(ctx)
				return nil
			},
			Reverse: func(context.Context) error {
				return n.stopLoop()
			},
		},
	)
	if err := handler.Run(ctx); err != nil {
		n.publishLocked()
		return err
	}

	if err := n.lifecycle.Fire(ctx, app.EventActivate, "Activate() called"); err != nil {
		return errors.Join(err, handler.Reverse(ctx))
	}
	n.activation = handler
	return nil
}

func (n *Node) switchInitialMode(ctx context.Context) error {
	mode := n.mode.Get()
	result := n.switcher.Switch(ctx, mode)
	n.last = &result
	if !result.Applied() {
		return fmt.Errorf("switch to %s: %s: %w", mode, result.Outcome, result.Err)
	}
	n.current = mode
	return nil
}

func (n *Node) deactivateControllers(ctx context.Context) error {
	result := n.switcher.DeactivateAll(ctx)
	n.last = &result
	if !result.Applied() {
		return fmt.Errorf("deactivate controllers: %s: %w", result.Outcome, result.Err)
	}
	n.current = modeswitch.ModeUnspecified
	return nil
}

// startLoop hands the coordinator to a fresh control loop. The loop and,
// when configured, the metrics server run until the lifecycle cancels them.
func (n *Node) startLoop(ctx context.Context) {
	loop := app.NewLoop(app.LoopConfig{UpdateRate: n.config.UpdateRate}, n.coord, n.switcher, n.logger, n.emitter)
	loop.SetMode(n.current, n.last)
	loop.Open()
	n.loop.Store(loop)

	runCtx, cancel := context.WithCancel(ctx)
	n.lifecycle.SetCancel(cancel)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	if addr := n.config.MetricsAddr; addr != "" {
		g.Go(func() error {
			n.logger.Info("serving metrics", ports.String("addr", addr))
			if err := n.metrics.Serve(gctx, addr); err != nil {
				n.logger.Error("metrics server failed", ports.String("addr", addr), ports.Err(err))
			}
			return nil
		})
	}

	n.lifecycle.AddWorker()
	go func() {
		defer n.lifecycle.WorkerDone()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			n.logger.Error("control loop exited", ports.Err(err))
		}
	}()
}

// stopLoop cancels the control loop, waits for it and takes the
// coordinator back.
func (n *Node) stopLoop() error {
	loop := n.loop.Load()
	if loop == nil {
		return nil
	}

	n.lifecycle.Cancel()
	err := n.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	snap := loop.Snapshot()
	n.current = snap.Mode
	if snap.LastResult != nil {
		n.last = snap.LastResult
	}
	n.loop.Store(nil)
	return err
}

// Deactivate stops the control loop and every non-fixed controller, then
// moves the node to inactive. The node becomes inactive even if the
// controller manager does not confirm the deactivation; the error is returned.
func (n *Node) Deactivate(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deactivateLocked(ctx, "Deactivate() called")
}

func (n *Node) deactivateLocked(ctx context.Context, reason string) error {
	if err := n.lifecycle.Check(app.EventDeactivate); err != nil {
		return err
	}

	var reverseErr error
	if n.activation != nil {
		reverseErr = n.activation.Reverse(ctx)
		n.activation = nil
	}

	if err := n.lifecycle.Fire(ctx, app.EventDeactivate, reason); err != nil {
		return errors.Join(reverseErr, err)
	}
	n.publishLocked()
	return reverseErr
}

// Cleanup moves an inactive node back to unconfigured.
func (n *Node) Cleanup(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.lifecycle.Fire(ctx, app.EventCleanup, "Cleanup() called"); err != nil {
		return err
	}
	n.publishLocked()
	return nil
}

// Shutdown deactivates the node if it is active, finalizes it and shuts
// plugins down. A finalized node cannot be restarted.
func (n *Node) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	plugins, err := n.shutdownLocked(ctx)
	n.mu.Unlock()

	// Plugins may be blocked on the node lock, so they are stopped after
	// it is released.
	n.shutdownPlugins(ctx, plugins)
	return err
}

func (n *Node) shutdownLocked(ctx context.Context) ([]Plugin, error) {
	if err := n.lifecycle.Check(app.EventShutdown); err != nil {
		return nil, err
	}

	var deactivateErr error
	if n.lifecycle.State() == app.StateActive {
		deactivateErr = n.deactivateLocked(ctx, "shutdown")
	}

	var plugins []Plugin
	if n.pluginsUp {
		n.pluginsCancel()
		plugins = n.plugins
		n.pluginsUp = false
	}

	if err := n.lifecycle.Fire(ctx, app.EventShutdown, "Shutdown() called"); err != nil {
		return plugins, errors.Join(deactivateErr, err)
	}
	n.publishLocked()
	return plugins, deactivateErr
}

// Start configures the node if needed and activates it.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lifecycle.State() == app.StateUnconfigured {
		if err := n.configureLocked(ctx); err != nil {
			return err
		}
	}
	return n.activateLocked(ctx)
}

// Stop shuts the node down, waiting at most app.ShutdownTimeout.
// Returns domain.ErrShutdownTimeout if the control loop did not stop in time.
func (n *Node) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	return n.Shutdown(ctx)
}

// RequestMode asks the running control loop to switch to mode and waits
// for the result. The node must be active. A failed switch is reported in
// the result, not as an error.
func (n *Node) RequestMode(ctx context.Context, mode modeswitch.ControlMode) (SwitchResult, error) {
	loop := n.loop.Load()
	if loop == nil {
		return SwitchResult{}, fmt.Errorf("%w: node is %s", domain.ErrNotActive, n.Status())
	}

	result, err := loop.RequestMode(ctx, mode)
	if err != nil {
		return result, err
	}
	if result.Applied() {
		n.mode.Store(mode)
	}
	return result, nil
}

// SetParameter sets a node parameter from its string form. Setting
// control_mode while active switches controllers and fails unless the
// switch is applied.
func (n *Node) SetParameter(ctx context.Context, name, value string) error {
	if name == ParamControlMode && n.loop.Load() != nil {
		return n.switchParameter(ctx, value)
	}

	n.mu.Lock()
	// The node may have been activated while waiting for the lock.
	if name == ParamControlMode && n.loop.Load() != nil {
		n.mu.Unlock()
		return n.switchParameter(ctx, value)
	}
	defer n.mu.Unlock()

	if err := n.params.Set(n.lifecycle.State(), name, value); err != nil {
		return err
	}
	n.logger.Info("parameter set", ports.String("name", name), ports.String("value", value))
	return nil
}

// switchParameter applies control_mode through the running loop.
func (n *Node) switchParameter(ctx context.Context, value string) error {
	mode, err := modeswitch.ParseControlMode(value)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", ParamControlMode, err)
	}
	result, err := n.RequestMode(ctx, mode)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", ParamControlMode, err)
	}
	if !result.Applied() {
		return fmt.Errorf("parameter %s: switch %s: %w", ParamControlMode, result.Outcome, result.Err)
	}
	return nil
}

// Parameter returns the formatted value of a parameter.
func (n *Node) Parameter(name string) (string, bool) {
	return n.params.Get(name)
}

// Parameters returns the names of all parameters, sorted.
func (n *Node) Parameters() []string {
	return n.params.Names()
}

// Snapshot returns the current view of the node.
func (n *Node) Snapshot() Snapshot {
	if loop := n.loop.Load(); loop != nil {
		return loop.Snapshot()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if loop := n.loop.Load(); loop != nil {
		return loop.Snapshot()
	}
	return app.BuildSnapshot(n.coord, n.lifecycle.State(), n.current, n.last, 0)
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (n *Node) Status() lifecycle.State {
	return n.lifecycle.State()
}

// MetricsHandler serves the node's metrics in the Prometheus text format.
func (n *Node) MetricsHandler() http.Handler {
	return n.metrics.Handler()
}

// publishLocked emits a snapshot while the node owns the coordinator.
func (n *Node) publishLocked() {
	if n.loop.Load() != nil {
		return
	}
	n.emitter.OnSnapshot(app.BuildSnapshot(n.coord, n.lifecycle.State(), n.current, n.last, 0))
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"modeswitch": {modeswitch.Version, modeswitch.MinCompatibleVersion},
		"lifecycle":  {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":        {log.Version, log.MinCompatibleVersion},
		"node":       {Version, MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
