package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nemanja-m/linecount/pkg/core"
)

const (
	defaultS3Endpoint  = "s3.amazonaws.com"
	defaultGCSEndpoint = "storage.googleapis.com"
	defaultRegion      = "us-east-1"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Store serves the objects below a bucket prefix. gs:// locations go
// through the GCS XML interoperability API, which speaks the S3 protocol
// with HMAC keys.
//
// A path containing glob metacharacters is split into a literal prefix and
// a doublestar pattern; List keeps only the keys below the prefix that match.
type S3Store struct {
	client  *minio.Client
	loc     Location
	pattern string
}

func NewS3Store(loc Location, cfg S3Config) (*S3Store, error) {
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("%w: %s requires storage access key and secret key", core.ErrConfiguration, loc)
	}
	if loc.Bucket == "" {
		return nil, fmt.Errorf("%w: %s has no bucket", core.ErrConfiguration, loc)
	}

	var pattern string
	if hasMeta(loc.Path) {
		base, rest := doublestar.SplitPattern(loc.Path)
		if !doublestar.ValidatePattern(rest) {
			return nil, fmt.Errorf("%w: invalid pattern in %s", core.ErrUsage, loc)
		}
		if base == "." {
			base = ""
		}
		loc.Path = base
		pattern = rest
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultS3Endpoint
		if loc.Scheme == SchemeGCS {
			endpoint = defaultGCSEndpoint
		}
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init object store client: %w", core.ErrConfiguration, err)
	}

	return &S3Store{client: client, loc: loc, pattern: pattern}, nil
}

func (s *S3Store) prefix() string {
	if s.loc.Path == "" {
		return ""
	}
	return s.loc.Path + "/"
}

func (s *S3Store) key(name string) string {
	return s.prefix() + strings.TrimLeft(name, "/")
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.loc.Bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket %s: %w", core.ErrIO, s.loc.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %s does not exist", core.ErrIO, s.loc.Bucket)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	prefix := s.prefix()
	names := make([]string, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.loc.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", core.ErrIO, s.loc, obj.Err)
		}
		// Zero-byte keys ending in "/" are folder placeholders.
		if obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if s.pattern != "" {
			if ok, _ := doublestar.Match(s.pattern, name); !ok {
				continue
			}
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *S3Store) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.loc.Bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrIO, s.Path(name), err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrIO, s.Path(name), err)
	}
	return data, nil
}

func (s *S3Store) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.loc.Bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrIO, s.Path(name), err)
	}
	return nil
}

func (s *S3Store) Empty(ctx context.Context) (bool, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return false, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range s.client.ListObjects(ctx, s.loc.Bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix(),
		Recursive: true,
		MaxKeys:   1,
	}) {
		if obj.Err != nil {
			return false, fmt.Errorf("%w: list %s: %w", core.ErrIO, s.loc, obj.Err)
		}
		return false, nil
	}
	return true, nil
}

func (s *S3Store) Path(name string) string {
	return s.loc.Join(name).String()
}
