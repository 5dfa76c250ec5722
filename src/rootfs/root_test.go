package rootfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/nftp/src/protocol"
)

// buildTree creates the fixture used by the tree and root tests:
//
//	root/
//	  file.txt
//	  dir_1/ file_1.txt dir_5/ file_4.txt
//	  dir_2/ dir_3/ dir_4/
//	  dir_6/ file_3.txt
func buildTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "root")
	dirs := []string{"dir_1/dir_5", "dir_2/dir_3/dir_4", "dir_6"}
	for _, rel := range dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
	}
	files := map[string]string{
		"file.txt":               "top",
		"dir_1/file_1.txt":       "one",
		"dir_1/dir_5/file_4.txt": "four",
		"dir_6/file_3.txt":       "three",
	}
	for rel, body := range files {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func TestNewRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(file, true); err == nil {
		t.Fatalf("expected error for file root")
	}
	if _, err := New(filepath.Join(dir, "missing"), true); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestStatAndOpen(t *testing.T) {
	r, err := New(buildTree(t), true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, info, err := r.Stat("dir_1/dir_5/file_4.txt")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != 4 {
		t.Fatalf("size = %d, want 4", info.Size())
	}

	f, size, err := r.Open("/file.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	if size != 3 {
		t.Fatalf("size = %d, want 3", size)
	}

	data, err := r.ReadFile("dir_6/file_3.txt")
	if err != nil || string(data) != "three" {
		t.Fatalf("ReadFile() = %q, %v", data, err)
	}
}

func TestStatNotFound(t *testing.T) {
	r, err := New(buildTree(t), true)
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"missing.txt", "dir_1", "dir_2/dir_3", ""} {
		if _, _, err := r.Stat(rel); !errors.Is(err, protocol.ErrNotFound) {
			t.Fatalf("Stat(%q) expected ErrNotFound, got %v", rel, err)
		}
	}
	if !r.Exists("dir_1") || r.Exists("nope") {
		t.Fatalf("Exists() mismatch")
	}
}

func TestResolveConfinement(t *testing.T) {
	base := t.TempDir()
	rootDir := filepath.Join(base, "served")
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(base, "secret.txt")
	if err := os.WriteFile(secret, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(secret, filepath.Join(rootDir, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	confined, err := New(rootDir, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, rel := range []string{"../secret.txt", "a/../../secret.txt", "link.txt"} {
		if _, err := confined.Resolve(rel); !errors.Is(err, protocol.ErrOutsideRoot) {
			t.Fatalf("Resolve(%q) expected ErrOutsideRoot, got %v", rel, err)
		}
	}
	if _, err := confined.Resolve("a/../inside.txt"); err != nil {
		t.Fatalf("Resolve(inside) error = %v", err)
	}

	open, err := New(rootDir, false)
	if err != nil {
		t.Fatal(err)
	}
	data, err := open.ReadFile("../secret.txt")
	if err != nil || string(data) != "nope" {
		t.Fatalf("unconfined ReadFile() = %q, %v", data, err)
	}
}

func TestWithin(t *testing.T) {
	sep := string(filepath.Separator)
	root := sep + filepath.Join("srv", "root")
	tests := []struct {
		path string
		want bool
	}{
		{path: root, want: true},
		{path: filepath.Join(root, "a"), want: true},
		{path: filepath.Join(root, "..a"), want: true},
		{path: filepath.Join(root, ".."), want: false},
		{path: sep + filepath.Join("srv", "rootx"), want: false},
		{path: sep + "etc", want: false},
	}
	for _, tc := range tests {
		if got := within(root, tc.path); got != tc.want {
			t.Fatalf("within(%q, %q) = %v, want %v", root, tc.path, got, tc.want)
		}
	}
}
