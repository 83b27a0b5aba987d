package domain

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const s3Scheme = "s3://"

// SourceKind distinguishes where an image's raw bytes come from
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceRemote
)

// Credentials are passed through to the object store untouched
type Credentials struct {
	AccessKey string
	SecretKey string
}

// ImageSource identifies the raw bytes of one image instance.
// Exactly one of Path (local) or Bucket/Key (remote) is meaningful, depending on Kind.
type ImageSource struct {
	Kind        SourceKind
	Path        string
	Bucket      string
	Key         string
	Credentials Credentials
}

// LocalSource returns a source backed by a file on the local filesystem
func LocalSource(p string) ImageSource {
	return ImageSource{Kind: SourceLocal, Path: p}
}

// RemoteSource returns a source backed by an object in a remote store
func RemoteSource(bucket, key string, creds Credentials) ImageSource {
	return ImageSource{Kind: SourceRemote, Bucket: bucket, Key: key, Credentials: creds}
}

// BaseName returns the final path element of the source
func (s ImageSource) BaseName() string {
	if s.Kind == SourceRemote {
		return path.Base(s.Key)
	}
	return filepath.Base(s.Path)
}

// IsArchive reports whether the source is a zip container
func (s ImageSource) IsArchive() bool {
	return strings.HasSuffix(s.BaseName(), ".zip")
}

func (s ImageSource) String() string {
	if s.Kind == SourceRemote {
		return s3Scheme + s.Bucket + "/" + s.Key
	}
	return s.Path
}

// ParseS3Reference splits "s3://bucket/path/to/object" into bucket and key
// The key is everything after the first "/" following the scheme.
func ParseS3Reference(ref string) (bucket string, key string, err error) {
	if !strings.HasPrefix(ref, s3Scheme) {
		return "", "", fmt.Errorf("%w: %q does not start with %s", ErrInvalidReference, ref, s3Scheme)
	}

	bucket, key, ok := strings.Cut(ref[len(s3Scheme):], "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q is not of the form %sbucket/key", ErrInvalidReference, ref, s3Scheme)
	}

	return bucket, key, nil
}

// ObjectStore is the remote fetch capability
type ObjectStore interface {
	// Exists reports whether the object is present
	Exists(ctx context.Context, bucket string, key string) (bool, error)

	// FetchTo writes the object's bytes to localPath
	FetchTo(ctx context.Context, bucket string, key string, localPath string) error

	Close() error
}

// ObjectStoreDialer opens an ObjectStore session for a set of credentials
type ObjectStoreDialer interface {
	Dial(ctx context.Context, creds Credentials) (ObjectStore, error)
}
