package unpack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfryer1193/ndar/imaging/classify"
	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/dfryer1193/ndar/imaging/staging"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog/log"
)

const (
	headSuffix = ".HEAD"
	brikSuffix = ".BRIK"
)

// ClassifyFunc returns the format of the file at path
type ClassifyFunc func(path string) (domain.FormatTag, error)

// Unpacker materializes a raw source into a staging area's unpacked slot and classifies the members
type Unpacker struct {
	classify ClassifyFunc
}

// New returns an Unpacker that classifies with classify.File
func New() *Unpacker {
	return NewWithClassifier(classify.File)
}

// NewWithClassifier returns an Unpacker using a custom classifier
func NewWithClassifier(fn ClassifyFunc) *Unpacker {
	return &Unpacker{classify: fn}
}

// Unpack populates area's unpacked slot from rawPath and classifies every member.
// An archive has all its members extracted; any other source is linked in under its base name.
// Any failure abandons the whole classification; the area is left for its owner to release.
func (u *Unpacker) Unpack(area *staging.Area, rawPath string, isArchive bool) (domain.FileClassification, error) {
	var (
		fc  domain.FileClassification
		err error
	)

	if isArchive {
		fc, err = u.unpackArchive(area, rawPath)
	} else {
		fc, err = u.unpackFile(area, rawPath)
	}
	if err != nil {
		return nil, err
	}

	pairBRIK(fc)
	fc.Sort()

	log.Debug().
		Str("source", rawPath).
		Bool("archive", isArchive).
		Int("members", fc.Count()).
		Msg("Unpacked image")

	return fc, nil
}

func (u *Unpacker) unpackFile(area *staging.Area, rawPath string) (domain.FileClassification, error) {
	tag, err := u.classify(rawPath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(rawPath)
	if err := os.Symlink(rawPath, area.MemberPath(name)); err != nil {
		return nil, fmt.Errorf("%w: linking %s: %w", domain.ErrUnpack, name, err)
	}

	fc := domain.NewFileClassification()
	fc.Add(tag, name)
	return fc, nil
}

func (u *Unpacker) unpackArchive(area *staging.Area, rawPath string) (domain.FileClassification, error) {
	zr, err := zip.OpenReader(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive %s: %w", domain.ErrUnpack, rawPath, err)
	}
	defer zr.Close()

	var names []string
	seen := make(map[string]bool)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := strings.TrimPrefix(f.Name, "./")
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return nil, fmt.Errorf("%w: archive member %q escapes the staging area", domain.ErrUnpack, f.Name)
		}

		if err := extractMember(f, area.MemberPath(name)); err != nil {
			return nil, fmt.Errorf("%w: extracting %s from %s: %w", domain.ErrUnpack, f.Name, rawPath, err)
		}

		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	fc := domain.NewFileClassification()
	for _, name := range names {
		tag, err := u.classify(area.MemberPath(name))
		if err != nil {
			return nil, err
		}
		fc.Add(tag, name)
	}

	return fc, nil
}

func extractMember(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, rc)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

// pairBRIK keeps only base names that have both a .HEAD and a .BRIK member in the BRIK bucket.
// Unmatched halves move to other with their extension.
func pairBRIK(fc domain.FileClassification) {
	heads := make(map[string]bool)
	briks := make(map[string]bool)

	for _, name := range fc[domain.FormatBRIK] {
		switch {
		case strings.HasSuffix(name, headSuffix):
			heads[strings.TrimSuffix(name, headSuffix)] = true
		case strings.HasSuffix(name, brikSuffix):
			briks[strings.TrimSuffix(name, brikSuffix)] = true
		}
	}

	paired := []string{}
	for base := range heads {
		if briks[base] {
			paired = append(paired, base)
		} else {
			fc.Add(domain.FormatOther, base+headSuffix)
		}
	}
	for base := range briks {
		if !heads[base] {
			fc.Add(domain.FormatOther, base+brikSuffix)
		}
	}

	fc[domain.FormatBRIK] = paired
}
