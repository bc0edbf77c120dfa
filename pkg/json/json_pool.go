// Package json provides high-performance JSON serialization with object pooling
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// jsonPool manages pooled JSON encoders, decoders, and buffers
type jsonPool struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
	bufferPool  sync.Pool
}

// Global JSON pool instance
var globalPool = &jsonPool{
	encoderPool: sync.Pool{
		New: func() interface{} {
			return &pooledEncoder{}
		},
	},
	decoderPool: sync.Pool{
		New: func() interface{} {
			return &pooledDecoder{}
		},
	},
	bufferPool: sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, 4096))
		},
	},
}

// pooledEncoder wraps a JSON encoder
type pooledEncoder struct {
	encoder *gojson.Encoder
}

// pooledDecoder wraps a JSON decoder
type pooledDecoder struct {
	decoder *gojson.Decoder
}

// GetEncoder gets a pooled JSON encoder bound to the given writer
func GetEncoder(w io.Writer) *gojson.Encoder {
	pe := globalPool.encoderPool.Get().(*pooledEncoder)

	// The writer differs per call, so the encoder itself is rebuilt
	pe.encoder = gojson.NewEncoder(w)
	pe.encoder.SetEscapeHTML(false)

	return pe.encoder
}

// PutEncoder returns an encoder to the pool
func PutEncoder(enc *gojson.Encoder) {
	globalPool.encoderPool.Put(&pooledEncoder{encoder: enc})
}

// GetDecoder gets a pooled JSON decoder bound to the given reader
func GetDecoder(r io.Reader) *gojson.Decoder {
	pd := globalPool.decoderPool.Get().(*pooledDecoder)
	pd.decoder = gojson.NewDecoder(r)
	return pd.decoder
}

// PutDecoder returns a decoder to the pool
func PutDecoder(dec *gojson.Decoder) {
	globalPool.decoderPool.Put(&pooledDecoder{decoder: dec})
}

// GetBuffer gets a pooled buffer
func GetBuffer() *bytes.Buffer {
	buf := globalPool.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	globalPool.bufferPool.Put(buf)
}

// Marshal serializes a value using the pooled encoder machinery
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal deserializes data into a value
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}
