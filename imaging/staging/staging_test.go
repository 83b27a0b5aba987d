package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dfryer1193/ndar/imaging/domain"
)

func TestNew(t *testing.T) {
	base := t.TempDir()

	a, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Release()

	if filepath.Dir(a.Root()) != base {
		t.Errorf("Root() = %q, want a child of %q", a.Root(), base)
	}

	for _, dir := range []string{filepath.Dir(a.RawPath("x")), a.UnpackedDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("slot %s missing: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("slot %s is not a directory", dir)
		}
	}

	entries, err := os.ReadDir(a.UnpackedDir())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("new staging area unpacked slot has %d entries, want 0", len(entries))
	}
}

func TestNew_UniqueDirectories(t *testing.T) {
	base := t.TempDir()
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		a, err := New(base)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Release()

		if seen[a.Root()] {
			t.Fatalf("New() returned duplicate directory %s", a.Root())
		}
		seen[a.Root()] = true
	}
}

func TestNew_ResourceError(t *testing.T) {
	_, err := New("/nonexistent/base/dir")
	if !errors.Is(err, domain.ErrResource) {
		t.Errorf("New() error = %v, want ErrResource", err)
	}
}

func TestArea_MemberPath(t *testing.T) {
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Release()

	want := filepath.Join(a.Root(), "unpacked", "sub", "scan.nii.gz")
	if got := a.MemberPath("sub/scan.nii.gz"); got != want {
		t.Errorf("MemberPath() = %q, want %q", got, want)
	}
}

func TestArea_LinkRaw(t *testing.T) {
	src := filepath.Join(t.TempDir(), "brain.mnc")
	if err := os.WriteFile(src, []byte("minc"), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Release()

	rawPath, err := a.LinkRaw(src, "brain.mnc")
	if err != nil {
		t.Fatalf("LinkRaw() error = %v", err)
	}

	target, err := os.Readlink(rawPath)
	if err != nil {
		t.Fatalf("raw path is not a symlink: %v", err)
	}
	if target != src {
		t.Errorf("symlink target = %q, want %q", target, src)
	}

	if _, err := a.LinkRaw(src, "brain.mnc"); !errors.Is(err, domain.ErrResource) {
		t.Errorf("second LinkRaw() error = %v, want ErrResource", err)
	}
}

func TestArea_FetchRaw(t *testing.T) {
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Release()

	var fetchedTo string
	rawPath, err := a.FetchRaw(context.Background(), func(ctx context.Context, localPath string) error {
		fetchedTo = localPath
		return os.WriteFile(localPath, []byte("payload"), 0644)
	}, "scan.zip")
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}

	if rawPath != fetchedTo {
		t.Errorf("FetchRaw() = %q, fetch wrote to %q", rawPath, fetchedTo)
	}
	if rawPath != a.RawPath("scan.zip") {
		t.Errorf("FetchRaw() = %q, want %q", rawPath, a.RawPath("scan.zip"))
	}

	fetchErr := errors.New("boom")
	_, err = a.FetchRaw(context.Background(), func(ctx context.Context, localPath string) error {
		return fetchErr
	}, "other.zip")
	if !errors.Is(err, fetchErr) {
		t.Errorf("FetchRaw() error = %v, want fetch error unchanged", err)
	}
}

func TestArea_Release(t *testing.T) {
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := os.WriteFile(a.MemberPath("x.HEAD"), []byte("head"), 0644); err != nil {
		t.Fatalf("Failed to write member: %v", err)
	}

	if err := a.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(a.Root()); !os.IsNotExist(err) {
		t.Errorf("staging directory still exists after Release(): %v", err)
	}
	if !a.Released() {
		t.Error("Released() = false after Release()")
	}

	if err := a.Release(); err != nil {
		t.Errorf("second Release() error = %v, want nil", err)
	}
}

func TestArea_ReleasedRefusesStaging(t *testing.T) {
	src := filepath.Join(t.TempDir(), "brain.mnc")
	if err := os.WriteFile(src, []byte("minc"), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if _, err := a.LinkRaw(src, "brain.mnc"); !errors.Is(err, domain.ErrResource) {
		t.Errorf("LinkRaw() after Release() error = %v, want ErrResource", err)
	}

	called := false
	_, err = a.FetchRaw(context.Background(), func(ctx context.Context, localPath string) error {
		called = true
		if err := os.MkdirAll(filepath.Dir(localPath), 0700); err != nil {
			return err
		}
		return os.WriteFile(localPath, []byte("payload"), 0644)
	}, "brain.mnc")
	if !errors.Is(err, domain.ErrResource) {
		t.Errorf("FetchRaw() after Release() error = %v, want ErrResource", err)
	}
	if called {
		t.Error("FetchRaw() ran the fetch on a released area")
	}

	if _, err := os.Stat(a.Root()); !os.IsNotExist(err) {
		t.Errorf("staging directory recreated after Release(): %v", err)
	}
}

// dropArea allocates an area and returns only its directory, leaving the Area unreachable
func dropArea(t *testing.T, base string) string {
	t.Helper()
	a, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a.Root()
}

func TestArea_FinalizerRemovesUnreleasedArea(t *testing.T) {
	root := dropArea(t, t.TempDir())

	deadline := time.Now().Add(5 * time.Second)
	for {
		runtime.GC()
		if _, err := os.Stat(root); os.IsNotExist(err) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("staging directory %s still exists after the Area became unreachable", root)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
