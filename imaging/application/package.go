package application

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dfryer1193/ndar/imaging/domain"
)

// imageDir is the directory under a package root holding its image files
const imageDir = "image03"

// Package pairs a package's image index with the strategy used to open its images
type Package struct {
	index   domain.PackageIndex
	resolve func(ctx context.Context, ref string) (*Image, error)
}

// NewLocalPackage opens images from root/image03/<image file> on the local filesystem.
// References that are absolute or climb out of root/image03 fail with domain.ErrInvalidReference.
func NewLocalPackage(index domain.PackageIndex, root string, opts ...Option) *Package {
	return &Package{
		index: index,
		resolve: func(ctx context.Context, ref string) (*Image, error) {
			if !filepath.IsLocal(ref) {
				return nil, fmt.Errorf("%w: image file %q is outside the package", domain.ErrInvalidReference, ref)
			}
			return NewLocalImage(LocalImagePath(root, ref), opts...)
		},
	}
}

// NewRemotePackage opens images from s3://bucket/key references using dialer and creds.
// Selecting this strategy without an object store fails with domain.ErrCapabilityUnavailable.
func NewRemotePackage(index domain.PackageIndex, dialer domain.ObjectStoreDialer, creds domain.Credentials, opts ...Option) (*Package, error) {
	if dialer == nil {
		return nil, fmt.Errorf("%w: remote packages need an object store", domain.ErrCapabilityUnavailable)
	}

	return &Package{
		index: index,
		resolve: func(ctx context.Context, ref string) (*Image, error) {
			bucket, key, err := domain.ParseS3Reference(ref)
			if err != nil {
				return nil, err
			}
			return NewRemoteImage(ctx, dialer, domain.RemoteSource(bucket, key, creds), opts...)
		},
	}, nil
}

// LocalImagePath returns where a package stores the named image file
func LocalImagePath(root string, imageFile string) string {
	return filepath.Join(root, imageDir, imageFile)
}

// Records returns the package's image records in index order
func (p *Package) Records(ctx context.Context) ([]domain.Record, error) {
	records, err := p.index.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read package index: %w", err)
	}
	return records, nil
}

// Image opens the image named by ref. The caller owns the returned Image and must Close it.
func (p *Package) Image(ctx context.Context, ref string) (*Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty image reference", domain.ErrInvalidReference)
	}
	return p.resolve(ctx, ref)
}
