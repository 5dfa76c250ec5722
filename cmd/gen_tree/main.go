// gen_tree builds a nested directory of random files to serve with nftpd.
//
// Usage:
//
//	go run ./cmd/gen_tree [-depth 3] [-fanout 2] [-files 2] [-size 4KB] [dir]
//
// Size accepts suffixes: B, KB, MB, GB (e.g., "256MB", "1GB", "65536").
// The default output dir is local/served.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultServeDir = "local/served"

func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: negative", s)
	}
	return n * multiplier, nil
}

type layout struct {
	depth  int
	fanout int
	files  int
	size   int64
}

// generate writes l.files files into dir and recurses l.fanout times until
// depth is exhausted. It returns the number of files and directories created.
func generate(dir string, l layout) (files, dirs int, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, 0, err
	}
	for i := 0; i < l.files; i++ {
		if err := writeRandom(filepath.Join(dir, fmt.Sprintf("file_%d.dat", i)), l.size); err != nil {
			return files, dirs, err
		}
		files++
	}
	if l.depth == 0 {
		return files, dirs, nil
	}

	child := l
	child.depth--
	for i := 0; i < l.fanout; i++ {
		f, d, err := generate(filepath.Join(dir, fmt.Sprintf("dir_%d", i)), child)
		files += f
		dirs += d + 1
		if err != nil {
			return files, dirs, err
		}
	}
	return files, dirs, nil
}

func writeRandom(path string, size int64) error {
	// Reuse existing file if it matches the requested size
	if info, err := os.Stat(path); err == nil && info.Size() == size {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	const chunkSize = 4 * 1024 * 1024
	buf := make([]byte, min(size, chunkSize))
	remaining := size
	for remaining > 0 {
		n := min(remaining, int64(chunkSize))
		if _, err := rand.Read(buf[:n]); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

func main() {
	depth := flag.Int("depth", 3, "directory nesting depth")
	fanout := flag.Int("fanout", 2, "subdirectories per directory")
	perDir := flag.Int("files", 2, "files per directory")
	sizeArg := flag.String("size", "4KB", "size of each file (B, KB, MB, GB)")
	flag.Parse()

	size, err := parseSize(*sizeArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *depth < 0 || *fanout < 0 || *perDir < 0 {
		fmt.Fprintf(os.Stderr, "Error: depth, fanout and files must be >= 0\n")
		os.Exit(1)
	}

	dir := DefaultServeDir
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}

	fmt.Printf("Generating tree in %s (depth %d, fanout %d, %d x %d bytes per dir)...\n", dir, *depth, *fanout, *perDir, size)
	files, dirs, err := generate(dir, layout{depth: *depth, fanout: *fanout, files: *perDir, size: size})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated: %s (%d files, %d directories)\n", dir, files, dirs)
}
