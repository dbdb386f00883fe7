// Package lifecycle defines the lifecycle vocabulary shared by modeswitch
// nodes and their embedders.
//
// A node moves through four states:
//
//	unconfigured --configure--> inactive --activate--> active
//	     ^                         |  ^                    |
//	     +--------cleanup----------+  +----deactivate------+
//
// and any non-finalized state can be shut down into finalized, which is
// terminal. Controller bindings can only change before activation; the
// control mode can change while inactive or active.
//
// # Usage
//
// Observe transitions by implementing [EventEmitter]:
//
//	type printer struct{}
//
//	func (printer) OnStateChange(prev, cur lifecycle.State, reason string) {
//	    fmt.Printf("%s -> %s (%s)\n", prev, cur, reason)
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
