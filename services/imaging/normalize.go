// Package imaging turns caller-supplied image representations into the form
// the provider expects.
//
// Accepted inputs are raw base64, data URLs (data:<mime>;base64,<payload>)
// and http(s) URLs, which are fetched and re-encoded. Normalized output is
// always a data URL: whitespace inside the base64 payload is removed, the
// declared MIME type is kept (lower-cased, without parameters) and, when
// none is declared, it is sniffed from the decoded bytes. Payload bytes are
// never changed.
package imaging

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyImage is returned when no image data was supplied
	ErrEmptyImage = errors.New("image is empty")

	// ErrNotBase64DataURL is returned for data URLs without ;base64
	ErrNotBase64DataURL = errors.New("data URL is not base64 encoded")

	// ErrInvalidBase64 is returned when the payload does not decode
	ErrInvalidBase64 = errors.New("image payload is not valid base64")
)

const dataURLScheme = "data:"

// Image is a normalized image: its media type, the cleaned base64 payload
// and the decoded bytes.
type Image struct {
	MIMEType string
	Base64   string
	data     []byte
}

// DataURL renders the image as data:<mime>;base64,<payload>
func (i *Image) DataURL() string {
	return dataURLScheme + i.MIMEType + ";base64," + i.Base64
}

// Bytes returns the decoded image bytes
func (i *Image) Bytes() []byte {
	return i.data
}

// Filename returns a file name with an extension matching the MIME type,
// used for multipart uploads.
func (i *Image) Filename() string {
	if m := mimetype.Lookup(i.MIMEType); m != nil && m.Extension() != "" {
		return "image" + m.Extension()
	}
	return "image"
}

// IsRemoteURL reports whether s points at an http or https resource
func IsRemoteURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsDataURL reports whether s carries a data: prefix
func IsDataURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), dataURLScheme)
}

// Normalize parses raw base64 or a base64 data URL.
func Normalize(src string) (*Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrEmptyImage
	}

	var mimeType, payload string
	if IsDataURL(src) {
		header, rest, found := strings.Cut(src[len(dataURLScheme):], ",")
		if !found {
			return nil, ErrNotBase64DataURL
		}
		params := strings.Split(header, ";")
		if !hasBase64Param(params[1:]) {
			return nil, ErrNotBase64DataURL
		}
		mimeType = cleanMediaType(params[0])
		payload = rest
	} else {
		payload = src
	}

	payload = StripWhitespace(payload)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}

	if mimeType == "" {
		mimeType = detectMediaType(data)
	}

	return &Image{
		MIMEType: mimeType,
		Base64:   payload,
		data:     data,
	}, nil
}

// FromBytes builds an Image from raw bytes and an optional declared type.
func FromBytes(data []byte, contentType string) *Image {
	mimeType := cleanMediaType(contentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detectMediaType(data)
	}
	return &Image{
		MIMEType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
		data:     data,
	}
}

// StripWhitespace removes spaces, tabs, carriage returns and newlines.
// Browser-side encoders sometimes chunk base64 into lines.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			return -1
		}
		return r
	}, s)
}

func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func hasBase64Param(params []string) bool {
	for _, p := range params {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			return true
		}
	}
	return false
}

// cleanMediaType lower-cases a media type and drops its parameters
func cleanMediaType(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}

func detectMediaType(data []byte) string {
	return cleanMediaType(mimetype.Detect(data).String())
}
