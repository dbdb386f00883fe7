// Package configwatcher reloads a modeswitch node's configuration file
// when it changes. The control mode and the [controllers] bindings are
// applied through node parameters, so lifecycle access rights apply: a
// binding edited while the node is active is rejected and retried on the
// next change.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/modeswitch/internal/cliconfig"
	"github.com/bft-labs/modeswitch/pkg/log"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
	"github.com/bft-labs/modeswitch/pkg/node"
)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration
	applyTimeout  time.Duration

	// Runtime state
	path     string
	params   node.Parameters
	logger   log.Logger
	applied  map[string]string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// ApplyTimeout bounds a single parameter change, which may include a
	// controller switch.
	// Default: 10 seconds
	ApplyTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		ApplyTimeout:  10 * time.Second,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.ApplyTimeout <= 0 {
		cfg.ApplyTimeout = 10 * time.Second
	}

	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		applyTimeout:  cfg.ApplyTimeout,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the current file contents as applied and starts
// watching the file.
func (p *Plugin) Initialize(ctx context.Context, cfg node.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.params = cfg.Parameters
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	p.mu.Unlock()

	if p.path == "" || p.params == nil {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	wanted, err := p.load()
	if err != nil {
		return err
	}
	p.applied = wanted

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save, so the directory is watched.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		p.reload(ctx)
	})
}

// load reads the file and returns the parameter values it asks for.
func (p *Plugin) load() (map[string]string, error) {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.path, err)
	}
	bindings, err := fc.ControllerBindings()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.path, err)
	}

	wanted := make(map[string]string, len(bindings)+1)
	for role, name := range bindings {
		wanted[node.ControllerParam(role)] = name
	}
	if fc.ControlMode != "" {
		wanted[node.ParamControlMode] = fc.ControlMode
	}
	return wanted, nil
}

// reload applies every value that differs from the last applied one.
// Bindings are applied before the control mode so a mode needing a new
// controller resolves to it.
func (p *Plugin) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	wanted, err := p.load()
	if err != nil {
		p.logger.Warn("config reload failed", log.Err(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, name := range changedParameters(p.applied, wanted) {
		value := wanted[name]
		applyCtx, cancel := context.WithTimeout(ctx, p.applyTimeout)
		err := p.params.SetParameter(applyCtx, name, value)
		cancel()
		if err != nil {
			p.logger.Warn("config change rejected",
				log.String("parameter", name),
				log.String("value", value),
				log.Err(err),
			)
			continue
		}
		p.applied[name] = value
		p.logger.Info("config change applied",
			log.String("parameter", name),
			log.String("value", value),
		)
	}
}

// changedParameters returns the names whose wanted value differs from the
// applied one, controller bindings first.
func changedParameters(applied, wanted map[string]string) []string {
	var names []string
	for name, value := range wanted {
		if old, ok := applied[name]; ok && (old == value || name == node.ParamControlMode && sameMode(old, value)) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		mi, mj := names[i] == node.ParamControlMode, names[j] == node.ParamControlMode
		if mi != mj {
			return mj
		}
		return names[i] < names[j]
	})
	return names
}

// sameMode reports whether two control mode strings name the same mode.
func sameMode(a, b string) bool {
	ma, errA := modeswitch.ParseControlMode(a)
	mb, errB := modeswitch.ParseControlMode(b)
	return errA == nil && errB == nil && ma == mb
}

// Ensure Plugin implements node.Plugin.
var _ node.Plugin = (*Plugin)(nil)
