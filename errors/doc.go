// Package errors defines the error kinds shared by the memory store: storage
// failures, dimension mismatches, uninitialized stores, missing records and
// pipeline faults. Errors carry a dotted code (domain.entity.reason) and
// structured fields via github.com/samber/oops; callers classify them with the
// Is* helpers instead of comparing messages.
package errors
