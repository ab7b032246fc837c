// Package vptree provides an exact vantage-point tree accelerator over the
// flat positional index. Vectors are stored and persisted by the flat index;
// the tree is rebuilt in memory whenever the stored vector count changes, so
// searches return exactly what a flat scan would.
package vptree
