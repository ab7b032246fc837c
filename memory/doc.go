// Package memory keeps the record store and the vector index consistent.
//
// The two stores are linked only by position: the vector at index position
// i belongs to the memory row with id i+1. AddMemory commits the row first
// and appends the vector second; there is no transaction spanning both, so a
// failure between the steps leaves the index one vector short. Every row's
// embedding is also journaled inside the records file, which lets Reconcile
// realign the index after such a failure.
//
// A Manager opens and closes both backing files on every call. It is not
// safe for concurrent writers.
package memory
