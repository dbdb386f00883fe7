package configwatcher

import "github.com/bft-labs/modeswitch/pkg/node"

// WithConfigWatcher returns a node Option that enables config file watching.
// The node's Config.ConfigPath names the file to watch.
//
// Usage:
//
//	n, err := node.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) node.Option {
	plugin := New(cfg)
	return node.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns a node Option that enables config
// watching with default settings (debounce 100ms).
//
// Usage:
//
//	n, err := node.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() node.Option {
	return WithConfigWatcher(DefaultConfig())
}
