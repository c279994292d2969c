// Package core defines the shared language of the LeapView system.
//
// This package contains:
//   - Domain entities (GeneratedDataSlice, Action, HandlerPlanStep, Fragment)
//   - Editor-facing state (InterfaceNode, InterfaceSettings, Details, DetailsPatch)
//   - Collaborator interfaces (GraphQuerier, SettingsStore, UpstreamResolver, DetailsSink)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
