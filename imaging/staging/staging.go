package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/rs/zerolog/log"
)

const (
	dirPattern  = "ndar-image-*"
	rawDir      = "raw"
	unpackedDir = "unpacked"
)

// FetchFunc writes a source's bytes to localPath
type FetchFunc func(ctx context.Context, localPath string) error

// Area is a private temporary directory holding one image instance's files.
// It has a raw/ slot for the linked or fetched source and an unpacked/ slot for member files.
// An Area must be released exactly once; Release is idempotent.
type Area struct {
	root string

	mu       sync.Mutex
	released bool
}

// New allocates a uniquely named staging directory under baseDir.
// An empty baseDir uses the system temporary directory.
func New(baseDir string) (*Area, error) {
	root, err := os.MkdirTemp(baseDir, dirPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %w", domain.ErrResource, err)
	}

	for _, dir := range []string{rawDir, unpackedDir} {
		if err := os.Mkdir(filepath.Join(root, dir), 0700); err != nil {
			os.RemoveAll(root)
			return nil, fmt.Errorf("%w: creating %s slot: %w", domain.ErrResource, dir, err)
		}
	}

	a := &Area{root: root}

	// Safety net only; owners are expected to call Release.
	runtime.SetFinalizer(a, func(a *Area) {
		log.Warn().Str("dir", a.root).Msg("Staging area was not released, removing on finalization")
		if err := a.Release(); err != nil {
			log.Error().Err(err).Str("dir", a.root).Msg("Failed to remove leaked staging area")
		}
	})

	log.Debug().Str("dir", root).Msg("Created staging area")
	return a, nil
}

// Root returns the staging directory
func (a *Area) Root() string {
	return a.root
}

// RawPath returns the path of baseName inside the raw slot
func (a *Area) RawPath(baseName string) string {
	return filepath.Join(a.root, rawDir, baseName)
}

// UnpackedDir returns the directory member files are materialized into
func (a *Area) UnpackedDir() string {
	return filepath.Join(a.root, unpackedDir)
}

// MemberPath returns the full path of a member file. It does no I/O.
// Member names use forward slashes, as in zip archives.
func (a *Area) MemberPath(name string) string {
	return filepath.Join(a.root, unpackedDir, filepath.FromSlash(name))
}

// LinkRaw places a symlink to sourcePath in the raw slot without copying bytes
func (a *Area) LinkRaw(sourcePath string, baseName string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkLive(); err != nil {
		return "", err
	}

	rawPath := a.RawPath(baseName)
	if err := os.Symlink(sourcePath, rawPath); err != nil {
		return "", fmt.Errorf("%w: linking %s into staging area: %w", domain.ErrResource, sourcePath, err)
	}
	return rawPath, nil
}

// FetchRaw has fetch write the source's bytes into the raw slot and returns the local path.
// Release waits for an in-flight fetch so it cannot leave bytes behind.
func (a *Area) FetchRaw(ctx context.Context, fetch FetchFunc, baseName string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkLive(); err != nil {
		return "", err
	}

	rawPath := a.RawPath(baseName)
	if err := fetch(ctx, rawPath); err != nil {
		return "", err
	}
	return rawPath, nil
}

// checkLive must be called with a.mu held
func (a *Area) checkLive() error {
	if a.released {
		return fmt.Errorf("%w: staging area %s already released", domain.ErrResource, a.root)
	}
	return nil
}

// Release removes the whole staging directory. Calls after a successful release are no-ops.
// If removal fails the area stays unreleased so a later call can retry.
func (a *Area) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil
	}

	if err := os.RemoveAll(a.root); err != nil {
		return fmt.Errorf("%w: removing staging directory %s: %w", domain.ErrResource, a.root, err)
	}

	a.released = true
	runtime.SetFinalizer(a, nil)
	log.Debug().Str("dir", a.root).Msg("Released staging area")
	return nil
}

// Released reports whether Release has completed
func (a *Area) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}
