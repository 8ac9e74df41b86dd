package storage

import (
	"context"
	"fmt"

	"github.com/nemanja-m/linecount/pkg/core"
)

// Store is a flat view of every object below a root location. Names are
// slash-separated and relative to the root.
type Store interface {
	// List returns the names of all regular objects below the root,
	// recursively, in sorted order.
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	// Empty reports whether the root holds no objects. A missing local
	// directory is empty; a missing bucket is an ErrIO, since nothing could
	// be written to it.
	Empty(ctx context.Context) (bool, error)
	// Path returns the full location of name, as shown to users and passed
	// to map functions.
	Path(name string) string
}

// Open returns the store for loc. Object locations need credentials in cfg.
func Open(loc Location, cfg S3Config) (Store, error) {
	switch loc.Scheme {
	case SchemeLocal:
		return NewLocalStore(loc.Path), nil
	case SchemeS3, SchemeGCS:
		return NewS3Store(loc, cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported location scheme %q", core.ErrConfiguration, loc.Scheme)
	}
}
