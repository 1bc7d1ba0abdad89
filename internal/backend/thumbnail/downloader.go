package thumbnail

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultDownloadTimeout = 30 * time.Second
	maxDownloadBytes       = 32 << 20
)

// Downloader fetches image bytes from http(s) URLs and decodes data URLs locally.
type Downloader struct {
	client *http.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	return &Downloader{client: &http.Client{Timeout: timeout}}
}

func (d *Downloader) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	if strings.HasPrefix(imageURL, "data:") {
		data, err := decodeDataURL(imageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP error! status: %d", ErrNetworkFailure, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrNetworkFailure, maxDownloadBytes)
	}
	slog.Debug("image downloaded", "url", imageURL, "bytes", len(data), "content_type", resp.Header.Get("Content-Type"))
	return data, nil
}

// decodeDataURL returns the payload of data:[<mediatype>][;base64],<data>.
func decodeDataURL(dataURL string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// some producers drop the padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		return data, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data url payload: %w", err)
	}
	return []byte(unescaped), nil
}

// Service combines download and thumbnail generation.
type Service struct {
	downloader  *Downloader
	thumbnailer *Thumbnailer
}

func NewService(downloader *Downloader, thumbnailer *Thumbnailer) *Service {
	return &Service{downloader: downloader, thumbnailer: thumbnailer}
}

// FromURL returns a thumbnail for imageURL. On failure the returned error wraps
// ErrNetworkFailure or ErrThumbnailFailure and the returned thumbnail is the
// Fallback for imageURL, which may be empty.
func (s *Service) FromURL(ctx context.Context, imageURL string) (string, error) {
	data, err := s.downloader.Fetch(ctx, imageURL)
	if err != nil {
		slog.Warn("thumbnail source download failed", "url", imageURL, "error", err)
		return Fallback(imageURL), err
	}
	thumb, err := s.thumbnailer.Generate(data)
	if err != nil {
		slog.Warn("thumbnail generation failed", "url", imageURL, "error", err)
		return Fallback(imageURL), err
	}
	return thumb, nil
}
