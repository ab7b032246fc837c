// Package index defines the positional vector index used by the memory store
// and the on-disk File handle that loads, mutates and atomically persists it.
// Implementations live in the flat (linear scan) and vptree (exact
// vantage-point tree) subpackages and share one binary format.
package index
