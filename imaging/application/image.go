package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/dfryer1193/ndar/imaging/staging"
	"github.com/dfryer1193/ndar/imaging/unpack"
	"github.com/rs/zerolog/log"
)

// Unpacker populates a staging area from a raw source and classifies its members
type Unpacker interface {
	Unpack(area *staging.Area, rawPath string, isArchive bool) (domain.FileClassification, error)
}

var _ Unpacker = (*unpack.Unpacker)(nil)

// Option configures an Image
type Option func(*imageOptions)

type imageOptions struct {
	tempDir  string
	unpacker Unpacker
}

// WithTempDir allocates staging directories under dir instead of the system temp directory
func WithTempDir(dir string) Option {
	return func(o *imageOptions) {
		o.tempDir = dir
	}
}

// WithUnpacker replaces the default unpacker
func WithUnpacker(u Unpacker) Option {
	return func(o *imageOptions) {
		o.unpacker = u
	}
}

func buildOptions(opts []Option) imageOptions {
	o := imageOptions{unpacker: unpack.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stageFunc places the raw source into the staging area and returns its local path
type stageFunc func(ctx context.Context, area *staging.Area) (string, error)

// Image is one image instance staged into a private directory.
// The first call to Files links or fetches the source, unpacks it and caches the result;
// later calls return the cached classification (or the cached failure) without doing either again.
// Callers should defer Close; the staging directory is also removed if the Image is garbage collected.
type Image struct {
	source   domain.ImageSource
	area     *staging.Area
	unpacker Unpacker
	stage    stageFunc

	mu           sync.Mutex
	closed       bool
	materialized bool
	files        domain.FileClassification
	err          error
}

// NewLocalImage binds an image backed by a local file or zip archive.
// It fails with domain.ErrNotFound before allocating anything if the file does not exist.
func NewLocalImage(sourcePath string, opts ...Option) (*Image, error) {
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", sourcePath, err)
	}

	if _, err := os.Stat(absPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no such file %s", domain.ErrNotFound, absPath)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}

	source := domain.LocalSource(absPath)
	stage := func(ctx context.Context, area *staging.Area) (string, error) {
		return area.LinkRaw(source.Path, source.BaseName())
	}

	return newImage(source, stage, buildOptions(opts))
}

// NewRemoteImage binds an image backed by an object in a remote store.
// The object's existence is checked here, before any staging directory is created,
// and a missing object fails with domain.ErrNotFound.
func NewRemoteImage(ctx context.Context, dialer domain.ObjectStoreDialer, source domain.ImageSource, opts ...Option) (*Image, error) {
	if dialer == nil {
		return nil, fmt.Errorf("%w: no object store configured for %s", domain.ErrCapabilityUnavailable, source)
	}
	if source.Kind != domain.SourceRemote {
		return nil, fmt.Errorf("%w: %s is not a remote source", domain.ErrInvalidReference, source)
	}

	if err := probe(ctx, dialer, source); err != nil {
		return nil, err
	}

	stage := func(ctx context.Context, area *staging.Area) (string, error) {
		store, err := dialer.Dial(ctx, source.Credentials)
		if err != nil {
			return "", fmt.Errorf("failed to connect to object store for %s: %w", source, err)
		}
		defer store.Close()

		rawPath, err := area.FetchRaw(ctx, func(ctx context.Context, localPath string) error {
			return store.FetchTo(ctx, source.Bucket, source.Key, localPath)
		}, source.BaseName())
		if err != nil {
			return "", fmt.Errorf("failed to fetch %s: %w", source, err)
		}
		return rawPath, nil
	}

	return newImage(source, stage, buildOptions(opts))
}

func probe(ctx context.Context, dialer domain.ObjectStoreDialer, source domain.ImageSource) error {
	store, err := dialer.Dial(ctx, source.Credentials)
	if err != nil {
		return fmt.Errorf("failed to connect to object store for %s: %w", source, err)
	}
	defer store.Close()

	exists, err := store.Exists(ctx, source.Bucket, source.Key)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", source, err)
	}
	if !exists {
		return fmt.Errorf("%w: object %s", domain.ErrNotFound, source)
	}
	return nil
}

func newImage(source domain.ImageSource, stage stageFunc, o imageOptions) (*Image, error) {
	area, err := staging.New(o.tempDir)
	if err != nil {
		return nil, err
	}

	return &Image{
		source:   source,
		area:     area,
		unpacker: o.unpacker,
		stage:    stage,
	}, nil
}

// Source returns the image's source reference
func (img *Image) Source() domain.ImageSource {
	return img.source
}

// Files returns the classified member files, materializing the image on first use.
// The context only bounds the remote fetch; unpacking runs to completion.
func (img *Image) Files(ctx context.Context) (domain.FileClassification, error) {
	img.mu.Lock()
	defer img.mu.Unlock()

	if img.closed {
		return nil, fmt.Errorf("%w: image %s is closed", domain.ErrResource, img.source)
	}

	if !img.materialized {
		img.files, img.err = img.materialize(ctx)
		img.materialized = true
	}

	if img.err != nil {
		return nil, img.err
	}
	return img.files.Clone(), nil
}

func (img *Image) materialize(ctx context.Context) (domain.FileClassification, error) {
	rawPath, err := img.stage(ctx, img.area)
	if err != nil {
		return nil, err
	}

	files, err := img.unpacker.Unpack(img.area, rawPath, img.source.IsArchive())
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", img.source, err)
	}

	log.Info().
		Str("source", img.source.String()).
		Int("members", files.Count()).
		Msg("Materialized image")

	return files, nil
}

// Path returns the full path of a member file named in the classification
func (img *Image) Path(name string) string {
	return img.area.MemberPath(name)
}

// Close removes the staging directory and waits for an in-flight Files call to finish first.
// Files fails on a closed Image. It is safe to call more than once.
func (img *Image) Close() error {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.closed = true
	return img.area.Release()
}
