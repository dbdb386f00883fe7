// Package domain contains the value types and errors shared by the modeswitch
// node's application layer and its adapters.
//
// This package has no dependencies on infrastructure concerns (HTTP, file
// system, logging). The switching rules themselves live in pkg/modeswitch;
// domain only describes what crosses the boundary around them.
//
// # Types
//
//   - [SwitchRequest]: one call to a controller manager
//   - [SwitchReport]: the manager's per-controller answer
//   - [SwitchResult]: the outcome of driving a proposal to completion
//   - [Snapshot]: a diagnostic view of the node
package domain
