package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error, shaped as
// <domain>.<entity>.<reason>.
type Code string

const (
	CodeStoreStorageFailure      Code = "store.storage.failure"
	CodeStoreInvariantMisaligned Code = "store.invariant.misaligned"

	CodeIndexDimensionInvalid Code = "index.dimension.invalid"

	CodeMemoryNotInitialized Code = "memory.state.not_initialized"
	CodeMemoryRecordNotFound Code = "memory.record.not_found"
	CodeMemoryInputInvalid   Code = "memory.input.invalid"

	CodePipelineStateMissing Code = "pipeline.state.missing_key"
	CodePipelineStageFailure Code = "pipeline.stage.failure"

	CodeEmbedUpstreamFailure   Code = "embed.upstream.failure"
	CodeEmbedProviderUnknown   Code = "embed.provider.invalid_value"
	CodeCaptionUpstreamFailure Code = "caption.upstream.failure"
	CodeCaptionProviderUnknown Code = "caption.provider.invalid_value"

	CodeConfigLoadReadFailure      Code = "config.load.read_failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldID(value int64) Attr {
	return Field("id", value)
}

func FieldPosition(value int) Attr {
	return Field("position", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// Storage wraps a backing-file failure. Errors that already carry a code are
// returned unchanged so the original kind survives propagation.
func Storage(err error, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return err
	}
	return Wrap(err, CodeStoreStorageFailure, msg, fields...)
}

// Dimension reports an embedding whose length does not match the index.
func Dimension(got, want int) error {
	return oops.Code(CodeIndexDimensionInvalid).
		With("got", got, "want", want).
		Errorf("embedding dimension %d does not match index dimension %d", got, want)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsStorage reports a StorageError, including invariant violations between
// the record store and the vector index.
func IsStorage(err error) bool {
	code := CodeOf(err)
	return code == CodeStoreStorageFailure || code == CodeStoreInvariantMisaligned
}

func IsMisaligned(err error) bool {
	return HasCode(err, CodeStoreInvariantMisaligned)
}

func IsDimension(err error) bool {
	return HasCode(err, CodeIndexDimensionInvalid)
}

func IsNotInitialized(err error) bool {
	return reason(CodeOf(err)) == "not_initialized"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value" || r == "missing_key"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeConfigValidateInvalidValue).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}
	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
