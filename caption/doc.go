// Package caption turns images into short text captions that can be stored
// and embedded as memories.
package caption
