package memory

import (
	"github.com/viant/recall/config"
	"github.com/viant/recall/index"
)

// DefaultK is the number of results returned by the retrieval pipeline.
const DefaultK = 5

// Config locates the backing files and selects consistency features.
type Config struct {
	SQLitePath    string
	IndexPath     string
	Dimension     int
	Kind          index.Kind
	Journal       bool
	CacheRecords  bool
	AutoReconcile bool
}

// ConfigFrom derives a Manager configuration from loaded settings.
func ConfigFrom(c *config.Config) Config {
	return Config{
		SQLitePath:    c.Storage.SQLitePath,
		IndexPath:     c.Storage.IndexPath,
		Dimension:     c.Index.Dimension,
		Kind:          index.Kind(c.Index.Kind),
		Journal:       c.Storage.Journal,
		CacheRecords:  c.Storage.CacheRecords,
		AutoReconcile: c.Storage.AutoReconcile,
	}
}
