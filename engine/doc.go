// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections to the record store and
// registering the vec_* SQL scalar functions used to cross-check the vector
// index against journaled embeddings.
package engine
