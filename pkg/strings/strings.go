// Package strings provides pooled string building utilities used on the
// request-construction and record hot paths.
package strings

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unsafe"
)

// BytesToString converts a byte slice to a string without allocation.
// WARNING: the returned string shares memory with the byte slice.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts a string to a byte slice without allocation.
// WARNING: the returned slice must not be modified.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Clone returns a copy of s that does not share memory with pooled buffers.
func Clone(s string) string {
	return strings.Clone(s)
}

// TrimSpace trims leading and trailing whitespace.
func TrimSpace(s string) string {
	return strings.TrimSpace(s)
}

// Split splits s around the delimiter.
func Split(s, delimiter string) []string {
	return strings.Split(s, delimiter)
}

// Join joins parts with the delimiter.
func Join(parts []string, delimiter string) string {
	return strings.Join(parts, delimiter)
}

// Contains reports whether substr is within s.
func Contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// Builder provides efficient string building over a reusable byte buffer.
type Builder struct {
	buf []byte
}

// NewBuilder creates a new string builder with the given capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (n int, err error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// String returns the built string using zero-copy conversion. Callers that
// retain the value past Put must Clone it first.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Len returns the length of the built string.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Reset resets the builder for reuse.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

// BuilderSize selects a pool bucket.
type BuilderSize int

const (
	// Small covers URLs, params, and log fragments (< 1KB).
	Small BuilderSize = iota
	// Medium covers API response staging (1KB - 16KB).
	Medium
	// Large covers bulk operations such as CSV staging (16KB+).
	Large
)

var (
	smallBuilderPool = &sync.Pool{
		New: func() interface{} { return NewBuilder(1024) },
	}
	mediumBuilderPool = &sync.Pool{
		New: func() interface{} { return NewBuilder(16 * 1024) },
	}
	largeBuilderPool = &sync.Pool{
		New: func() interface{} { return NewBuilder(64 * 1024) },
	}
)

func poolFor(size BuilderSize) *sync.Pool {
	switch size {
	case Medium:
		return mediumBuilderPool
	case Large:
		return largeBuilderPool
	default:
		return smallBuilderPool
	}
}

// GetBuilder retrieves a pooled builder of the specified size.
func GetBuilder(size BuilderSize) *Builder {
	builder := poolFor(size).Get().(*Builder)
	builder.Reset()
	return builder
}

// PutBuilder returns a builder to its pool.
func PutBuilder(builder *Builder, size BuilderSize) {
	if builder == nil {
		return
	}
	builder.Reset()
	poolFor(size).Put(builder)
}

// Concat concatenates strings using a pooled builder.
func Concat(parts ...string) string {
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}

	totalLen := 0
	for _, s := range parts {
		totalLen += len(s)
	}

	size := Small
	if totalLen > 16*1024 {
		size = Large
	} else if totalLen > 1024 {
		size = Medium
	}

	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	for _, s := range parts {
		builder.WriteString(s)
	}
	return Clone(builder.String())
}

// Sprintf provides a pooled alternative to fmt.Sprintf.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	builder := GetBuilder(Small)
	defer PutBuilder(builder, Small)

	fmt.Fprintf(builder, format, args...)
	return Clone(builder.String())
}

// URLBuilder provides incremental URL construction over a pooled builder.
type URLBuilder struct {
	builder   *Builder
	hasParams bool
}

// NewURLBuilder creates a new URL builder seeded with the base URL.
func NewURLBuilder(baseURL string) *URLBuilder {
	builder := GetBuilder(Small)
	builder.WriteString(baseURL)
	return &URLBuilder{
		builder:   builder,
		hasParams: strings.Contains(baseURL, "?"),
	}
}

// AddPath appends escaped path segments.
func (ub *URLBuilder) AddPath(segments ...string) *URLBuilder {
	for _, segment := range segments {
		if segment != "" {
			ub.builder.WriteByte('/')
			ub.builder.WriteString(url.PathEscape(segment))
		}
	}
	return ub
}

// AddParam appends an escaped query parameter.
func (ub *URLBuilder) AddParam(key, value string) *URLBuilder {
	if ub.hasParams {
		ub.builder.WriteByte('&')
	} else {
		ub.builder.WriteByte('?')
		ub.hasParams = true
	}
	ub.builder.WriteString(url.QueryEscape(key))
	ub.builder.WriteByte('=')
	ub.builder.WriteString(url.QueryEscape(value))
	return ub
}

// AddParamInt appends an integer query parameter.
func (ub *URLBuilder) AddParamInt(key string, value int) *URLBuilder {
	return ub.AddParam(key, strconv.Itoa(value))
}

// AddParams appends multiple query parameters.
func (ub *URLBuilder) AddParams(params map[string]string) *URLBuilder {
	for k, v := range params {
		ub.AddParam(k, v)
	}
	return ub
}

// String returns the built URL, detached from the pooled buffer.
func (ub *URLBuilder) String() string {
	return Clone(ub.builder.String())
}

// Close releases the builder back to the pool.
func (ub *URLBuilder) Close() {
	if ub.builder != nil {
		PutBuilder(ub.builder, Small)
		ub.builder = nil
	}
}
