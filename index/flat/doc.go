// Package flat provides a positional vector index that answers kNN queries
// by scanning all vectors and ranking them by squared Euclidean distance. It
// supports a compact binary format for persistence to a single file.
package flat
