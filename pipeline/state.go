package pipeline

import (
	recallerr "github.com/viant/recall/errors"
)

// State keys written and read by the stages.
const (
	KeyQuery         = "query"
	KeyEmbeddedQuery = "embedded_query"
	KeySearchResults = "search_results"
	KeyFormatted     = "formatted"
)

// State is the mutable context passed through every stage.
type State map[string]any

// Result is a memory projected for callers; the row id is dropped.
type Result struct {
	Caption   string `json:"caption"`
	Modality  string `json:"modality"`
	Timestamp string `json:"timestamp"`
	FilePath  string `json:"filepath"`
}

func lookup[T any](s State, stage, key string) (T, error) {
	var zero T
	raw, ok := s[key]
	if !ok {
		return zero, recallerr.New(recallerr.CodePipelineStateMissing, "state key is missing",
			recallerr.Field("stage", stage), recallerr.Field("key", key))
	}
	v, ok := raw.(T)
	if !ok {
		return zero, recallerr.New(recallerr.CodePipelineStateMissing, "state key has an unexpected type",
			recallerr.Field("stage", stage), recallerr.Field("key", key))
	}
	return v, nil
}
