package unpack

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/dfryer1193/ndar/imaging/staging"
	"github.com/klauspost/compress/zip"
)

// createTestArchive writes a zip with the given members and returns its path
func createTestArchive(t *testing.T, dir string, name string, members map[string][]byte) string {
	t.Helper()
	p := filepath.Join(dir, name)

	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for memberName, content := range members {
		w, err := zw.Create(memberName)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", memberName, err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("Failed to write %s: %v", memberName, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to finish archive: %v", err)
	}

	return p
}

func newArea(t *testing.T) *staging.Area {
	t.Helper()
	a, err := staging.New(t.TempDir())
	if err != nil {
		t.Fatalf("staging.New() error = %v", err)
	}
	t.Cleanup(func() { a.Release() })
	return a
}

func expected(buckets map[domain.FormatTag][]string) domain.FileClassification {
	fc := domain.NewFileClassification()
	for tag, names := range buckets {
		fc[tag] = names
	}
	return fc
}

func TestUnpack_Archive(t *testing.T) {
	dicom := make([]byte, 140)
	copy(dicom[128:], "DICM")

	src := createTestArchive(t, t.TempDir(), "image.zip", map[string][]byte{
		"scan.nii.gz": []byte("nifti"),
		"x.HEAD":      []byte("head"),
		"x.BRIK":      []byte("brik"),
		"y.HEAD":      []byte("lonely head"),
		"IM0002":      dicom,
		"IM0001":      dicom,
		"notes.txt":   []byte("notes"),
	})

	area := newArea(t)
	fc, err := New().Unpack(area, src, true)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	want := expected(map[domain.FormatTag][]string{
		domain.FormatNIfTI1: {"scan.nii.gz"},
		domain.FormatBRIK:   {"x"},
		domain.FormatDICOM:  {"IM0001", "IM0002"},
		domain.FormatOther:  {"notes.txt", "y.HEAD"},
	})
	if !reflect.DeepEqual(fc, want) {
		t.Errorf("Unpack() = %v, want %v", fc, want)
	}

	content, err := os.ReadFile(area.MemberPath("x.BRIK"))
	if err != nil {
		t.Fatalf("extracted member missing: %v", err)
	}
	if string(content) != "brik" {
		t.Errorf("x.BRIK content = %q, want %q", content, "brik")
	}
}

func TestUnpack_ArchiveSubdirectories(t *testing.T) {
	src := createTestArchive(t, t.TempDir(), "nested.zip", map[string][]byte{
		"series/a.png": []byte("png"),
		"series/":      nil,
	})

	area := newArea(t)
	fc, err := New().Unpack(area, src, true)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	want := expected(map[domain.FormatTag][]string{
		domain.FormatPNG: {"series/a.png"},
	})
	if !reflect.DeepEqual(fc, want) {
		t.Errorf("Unpack() = %v, want %v", fc, want)
	}
	if _, err := os.Stat(area.MemberPath("series/a.png")); err != nil {
		t.Errorf("nested member not extracted: %v", err)
	}
}

func TestUnpack_ArchiveEscapingMember(t *testing.T) {
	src := createTestArchive(t, t.TempDir(), "evil.zip", map[string][]byte{
		"../outside.txt": []byte("x"),
	})

	_, err := New().Unpack(newArea(t), src, true)
	if !errors.Is(err, domain.ErrUnpack) {
		t.Errorf("Unpack() error = %v, want ErrUnpack", err)
	}
}

func TestUnpack_CorruptArchive(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(src, []byte("this is not a zip file"), 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}

	_, err := New().Unpack(newArea(t), src, true)
	if !errors.Is(err, domain.ErrUnpack) {
		t.Errorf("Unpack() error = %v, want ErrUnpack", err)
	}
}

func TestUnpack_SingleFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "brain.mnc")
	if err := os.WriteFile(src, []byte("minc"), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	area := newArea(t)
	rawPath, err := area.LinkRaw(src, "brain.mnc")
	if err != nil {
		t.Fatalf("LinkRaw() error = %v", err)
	}

	fc, err := New().Unpack(area, rawPath, false)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	want := expected(map[domain.FormatTag][]string{
		domain.FormatMINC: {"brain.mnc"},
	})
	if !reflect.DeepEqual(fc, want) {
		t.Errorf("Unpack() = %v, want %v", fc, want)
	}

	target, err := os.Readlink(area.MemberPath("brain.mnc"))
	if err != nil {
		t.Fatalf("member is not a symlink: %v", err)
	}
	if target != rawPath {
		t.Errorf("member symlink target = %q, want %q", target, rawPath)
	}
}

func TestUnpack_ClassificationFailureAborts(t *testing.T) {
	area := newArea(t)
	rawPath, err := area.LinkRaw("/nonexistent/source/IM0001", "IM0001")
	if err != nil {
		t.Fatalf("LinkRaw() error = %v", err)
	}

	fc, err := New().Unpack(area, rawPath, false)
	if !errors.Is(err, domain.ErrClassification) {
		t.Errorf("Unpack() error = %v, want ErrClassification", err)
	}
	if fc != nil {
		t.Errorf("Unpack() returned partial classification %v", fc)
	}
}

func TestUnpack_CustomClassifierErrorPropagates(t *testing.T) {
	src := createTestArchive(t, t.TempDir(), "image.zip", map[string][]byte{
		"a.dat": []byte("a"),
	})

	classifyErr := errors.New("sniff failed")
	u := NewWithClassifier(func(path string) (domain.FormatTag, error) {
		return "", classifyErr
	})

	_, err := u.Unpack(newArea(t), src, true)
	if !errors.Is(err, classifyErr) {
		t.Errorf("Unpack() error = %v, want classifier error unchanged", err)
	}
}

func TestPairBRIK(t *testing.T) {
	tests := []struct {
		name      string
		brik      []string
		wantBRIK  []string
		wantOther []string
	}{
		{
			name:      "Matched pair and lonely head",
			brik:      []string{"a.HEAD", "a.BRIK", "b.HEAD"},
			wantBRIK:  []string{"a"},
			wantOther: []string{"b.HEAD"},
		},
		{
			name:      "Lonely brik",
			brik:      []string{"c.BRIK"},
			wantBRIK:  []string{},
			wantOther: []string{"c.BRIK"},
		},
		{
			name:      "Multiple pairs",
			brik:      []string{"z.BRIK", "a.HEAD", "z.HEAD", "a.BRIK"},
			wantBRIK:  []string{"a", "z"},
			wantOther: []string{},
		},
		{
			name:      "Empty",
			brik:      []string{},
			wantBRIK:  []string{},
			wantOther: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := domain.NewFileClassification()
			fc[domain.FormatBRIK] = tt.brik

			pairBRIK(fc)
			fc.Sort()

			if !reflect.DeepEqual(fc[domain.FormatBRIK], tt.wantBRIK) {
				t.Errorf("BRIK = %v, want %v", fc[domain.FormatBRIK], tt.wantBRIK)
			}
			if !reflect.DeepEqual(fc[domain.FormatOther], tt.wantOther) {
				t.Errorf("other = %v, want %v", fc[domain.FormatOther], tt.wantOther)
			}
		})
	}
}
