// Package aggregates defines domain-facing aggregate contracts.
//
// A contract names a write boundary where invariants must hold atomically; it says
// nothing about how the boundary is persisted or transported.
package aggregates
