// Package aggregates implements the write boundary for domain aggregates.
//
// Every write composes table repos from internal/data/repos, owns its transaction and guards the
// stored row with a version compare-and-set.
package aggregates
