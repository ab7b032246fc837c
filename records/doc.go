// Package records is the relational half of the memory store. It keeps the
// memories and reflections tables in a single SQLite file, together with an
// embedding journal that mirrors every vector appended to the index so the
// two stores can be realigned after a partial write.
package records
