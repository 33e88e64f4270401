package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxImageBytes bounds a downloaded source image
const DefaultMaxImageBytes int64 = 20 << 20

var (
	// ErrImageTooLarge is returned when a download exceeds the size limit
	ErrImageTooLarge = errors.New("image exceeds size limit")

	// ErrEmptyDownload is returned when the remote resource has no body
	ErrEmptyDownload = errors.New("downloaded image is empty")
)

// StatusError reports a non-success response from the image host
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image host returned status %d", e.StatusCode)
}

// Fetcher downloads remote source images
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a Fetcher. A nil client uses http.DefaultClient and a
// non-positive limit uses DefaultMaxImageBytes.
func NewFetcher(httpClient *http.Client, maxBytes int64) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Fetcher{
		httpClient: httpClient,
		maxBytes:   maxBytes,
	}
}

// Fetch downloads url and re-encodes the body as an Image, keeping the
// declared Content-Type.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyDownload
	}

	return FromBytes(data, resp.Header.Get("Content-Type")), nil
}
