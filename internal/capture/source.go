// Package capture acquires frames from addressable video sources.
//
// A source address is either an object-store path (s3://bucket/prefix of
// JPEG frames, replayed in a loop) or an MJPEG HTTP endpoint. Frames are
// opaque JPEG bytes; decoding is the inference server's problem.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"
)

// Frame is one captured frame with metadata.
type Frame struct {
	Seq        uint64
	Data       []byte
	CapturedAt time.Time
}

// Source is one open video stream. Read blocks until a frame is available
// or ctx is done. A failed Read is retryable; the stream stays open.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Config carries the credentials shared by object-store sources.
type Config struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
}

// ErrNoFrames is returned when an object-store prefix holds no frame objects.
var ErrNoFrames = errors.New("capture: no frames under prefix")

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Open opens the source behind a single address, dispatching on scheme.
func Open(ctx context.Context, cfg Config, addr string) (Source, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse source address %q: %w", addr, err)
	}

	switch u.Scheme {
	case "s3":
		return newObjectSource(ctx, cfg, u)
	case "http", "https":
		return newMJPEGSource(ctx, addr)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

// OpenWithFallback tries the primary address, then the backup. Both failing
// is an initialization failure: the caller leaves the stream out of the
// pipeline, it does not retry.
func OpenWithFallback(ctx context.Context, cfg Config, primary, backup string) (Source, error) {
	src, err := Open(ctx, cfg, primary)
	if err == nil {
		return src, nil
	}
	if backup == "" {
		return nil, err
	}

	log.Printf("Capture: primary source %s failed (%v), trying backup", primary, err)
	src, backupErr := Open(ctx, cfg, backup)
	if backupErr != nil {
		return nil, fmt.Errorf("primary: %v; backup: %w", err, backupErr)
	}
	return src, nil
}
