// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts here avoid persistence and transport details. Each write method
// is a semantic boundary where a status guard and its transition are applied
// atomically.
package aggregates
