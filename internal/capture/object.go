package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectSource replays JPEG frame objects from a MinIO bucket prefix in key
// order, wrapping back to the first frame at the end. Used for recorded
// footage and simulation; the worker treats it exactly like a live stream.
type objectSource struct {
	client *minio.Client
	bucket string
	keys   []string
	idx    int
	seq    uint64
}

func newObjectSource(ctx context.Context, cfg Config, u *url.URL) (*objectSource, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	bucket := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")

	objectCh := client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects in %s/%s: %w", bucket, prefix, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		keys = append(keys, object.Key)
	}
	if len(keys) == 0 {
		return nil, ErrNoFrames
	}
	sort.Strings(keys)

	return &objectSource{client: client, bucket: bucket, keys: keys}, nil
}

func (s *objectSource) Read(ctx context.Context) (Frame, error) {
	key := s.keys[s.idx]

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return Frame{}, fmt.Errorf("get object %s: %w", key, err)
	}

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, obj)
	obj.Close()
	if err != nil {
		return Frame{}, fmt.Errorf("read object %s: %w", key, err)
	}

	s.idx = (s.idx + 1) % len(s.keys)
	s.seq++
	return Frame{Seq: s.seq, Data: buf.Bytes(), CapturedAt: nowFunc()}, nil
}

func (s *objectSource) Close() error {
	return nil
}
