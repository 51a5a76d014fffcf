// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations in this package compose table-level repos from internal/data/repos
// and own transaction boundaries for status transitions. Every transition
// reads, guards and then applies a compare-and-set update inside one
// transaction, so a concurrent duplicate observes CodeInvalidState.
package aggregates
