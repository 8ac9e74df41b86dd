package storage

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/nemanja-m/linecount/pkg/core"
)

const (
	SchemeLocal = "file"
	SchemeS3    = "s3"
	SchemeGCS   = "gs"
)

// Location is a parsed input or output URI. Local locations carry a
// filesystem path; object locations carry a bucket and a key prefix without
// leading or trailing slashes.
type Location struct {
	Scheme string
	Bucket string
	Path   string
}

func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty location", core.ErrUsage)
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeLocal, Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: invalid location %q: %v", core.ErrUsage, raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case SchemeLocal:
		return Location{Scheme: SchemeLocal, Path: u.Path}, nil
	case SchemeS3, SchemeGCS:
		if u.Host == "" {
			return Location{}, fmt.Errorf("%w: location %q has no bucket", core.ErrUsage, raw)
		}
		return Location{
			Scheme: strings.ToLower(u.Scheme),
			Bucket: u.Host,
			Path:   strings.Trim(u.Path, "/"),
		}, nil
	default:
		return Location{}, fmt.Errorf("%w: unsupported location scheme %q", core.ErrConfiguration, u.Scheme)
	}
}

func (l Location) IsLocal() bool {
	return l.Scheme == SchemeLocal
}

// Join returns the location of name below l.
func (l Location) Join(name string) Location {
	joined := l
	if l.IsLocal() {
		joined.Path = filepath.Join(l.Path, filepath.FromSlash(name))
	} else {
		joined.Path = strings.Trim(path.Join(l.Path, name), "/")
	}
	return joined
}

func (l Location) String() string {
	if l.IsLocal() {
		return l.Path
	}
	if l.Path == "" {
		return l.Scheme + "://" + l.Bucket
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Path
}
