package capture

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// mjpegSource reads an MJPEG stream served as multipart/x-mixed-replace,
// one JPEG part per frame. This is what IP cameras and the usual Flask-style
// camera relays expose.
type mjpegSource struct {
	resp   *http.Response
	reader *multipart.Reader
	seq    uint64
}

func newMJPEGSource(ctx context.Context, addr string) (*mjpegSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open MJPEG stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("bad status from %s: %s", addr, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("not an MJPEG stream: %s", mediaType)
	}

	return &mjpegSource{
		resp:   resp,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

func (s *mjpegSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		return Frame{}, fmt.Errorf("next frame part: %w", err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return Frame{}, fmt.Errorf("read frame part: %w", err)
	}

	s.seq++
	return Frame{Seq: s.seq, Data: data, CapturedAt: nowFunc()}, nil
}

func (s *mjpegSource) Close() error {
	return s.resp.Body.Close()
}
