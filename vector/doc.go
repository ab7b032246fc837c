// Package vector holds embedding helpers shared by the index and the record
// store. It includes:
//   - Embedding encoding (BLOB) used by the embedding journal
//   - Distance functions (L2, squared L2, magnitude)
//   - Dimension checks and unit-length normalization
package vector
