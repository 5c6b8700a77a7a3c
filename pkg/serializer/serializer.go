// Package serializer turns values into bytes and back, with an optional
// compression pass. The default implementation is JSON-based — the closest
// Go analogue to a pickle-style "serialize anything" default, since Go has
// no universal object serializer in the standard library and nothing in the
// reference corpus ships one either.
package serializer

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
)

// Serializer converts values to bytes and back. Implementations must satisfy
// the round-trip law: Deserialize(Serialize(v)) reproduces v field-for-field.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
}

// JSON is the default Serializer: encoding/json, with an optional gzip pass.
type JSON struct {
	// Compression enables gzip compression of the JSON payload.
	Compression bool
}

// New returns a JSON serializer with compression disabled.
func New() *JSON {
	return &JSON{}
}

// WithCompression returns a copy of s with compression enabled or disabled.
func (s *JSON) WithCompression(enabled bool) *JSON {
	return &JSON{Compression: enabled}
}

func (s *JSON) Serialize(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !s.Compression {
		return data, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *JSON) Deserialize(data []byte, v any) error {
	raw := data
	if s.Compression {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return err
		}
		defer gz.Close()

		raw, err = io.ReadAll(gz)
		if err != nil {
			return err
		}
	}

	// UseNumber preserves JSON numbers as json.Number instead of collapsing
	// them to float64 wherever they land in an interface{} (Args, Kwargs,
	// a stored result value) — concrete-typed struct fields decode normally
	// either way.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
