// Package codec decodes component descriptors from the wire formats a
// descriptor endpoint may answer with.
//
// Two formats are supported:
//   - JSON (default): application/json
//   - msgpack: application/msgpack or application/x-msgpack
//
// Both formats use the struct's json tags, so a descriptor type declares its
// field names once.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Content types.
const (
	ContentTypeJSON          = "application/json"
	ContentTypeMsgpack       = "application/msgpack"
	ContentTypeMsgpackLegacy = "application/x-msgpack"
)

// Accept is the Accept header value advertising every supported format,
// JSON preferred.
const Accept = ContentTypeJSON + ", " + ContentTypeMsgpack + ";q=0.9"

// ErrUnsupportedFormat is returned for content types no codec handles.
var ErrUnsupportedFormat = errors.New("codec: unsupported content type")

// Format identifies a wire format.
type Format int

const (
	FormatJSON Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatMsgpack:
		return "msgpack"
	default:
		return "json"
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return ContentTypeMsgpack
	}
	return ContentTypeJSON
}

// Detect maps a Content-Type header to a format. Empty and text/* types
// are treated as JSON since many static hosts mislabel .json files.
func Detect(contentType string) (Format, error) {
	if contentType == "" {
		return FormatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}

	switch {
	case mediaType == ContentTypeMsgpack, mediaType == ContentTypeMsgpackLegacy:
		return FormatMsgpack, nil
	case mediaType == ContentTypeJSON,
		strings.HasSuffix(mediaType, "+json"),
		strings.HasPrefix(mediaType, "text/"):
		return FormatJSON, nil
	}
	return FormatJSON, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
}

// Decode unmarshals data into v according to contentType.
func Decode(contentType string, data []byte, v any) error {
	format, err := Detect(contentType)
	if err != nil {
		return err
	}
	return DecodeFormat(format, data, v)
}

// DecodeFormat unmarshals data in the given format into v.
func DecodeFormat(format Format, data []byte, v any) error {
	switch format {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("decode msgpack: %w", err)
		}
		return nil
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	}
}

// Encode marshals v in the given format. Descriptor endpoints and tests use
// it to produce payloads the decoder accepts.
func Encode(format Format, v any) ([]byte, error) {
	switch format {
	case FormatMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		enc.SetOmitEmpty(true)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode msgpack: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return data, nil
	}
}
