package rootfs

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestSerializeTreeBracketsBalanced(t *testing.T) {
	out, err := SerializeTree(buildTree(t))
	if err != nil {
		t.Fatalf("SerializeTree() error = %v", err)
	}

	depth := 0
	for i, c := range out {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth < 0 {
			t.Fatalf("closing brace without opener at %d in %q", i, out)
		}
	}
	if depth != 0 {
		t.Fatalf("unbalanced output %q (depth %d)", out, depth)
	}
	if strings.Count(out, "{") != strings.Count(out, "}") {
		t.Fatalf("open/close mismatch in %q", out)
	}
}

func TestSerializeTreeMentionsEveryNameOnce(t *testing.T) {
	out, err := SerializeTree(buildTree(t))
	if err != nil {
		t.Fatalf("SerializeTree() error = %v", err)
	}

	names := []string{"root", "file.txt", "dir_1", "file_1.txt", "dir_5", "file_4.txt", "dir_2", "dir_3", "dir_4", "dir_6", "file_3.txt"}
	tokens := regexp.MustCompile(`[^{},]+`).FindAllString(out, -1)
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	for _, name := range names {
		if counts[name] != 1 {
			t.Fatalf("%q appears %d times in %q", name, counts[name], out)
		}
	}
	if len(tokens) != len(names) {
		t.Fatalf("got %d names, want %d: %q", len(tokens), len(names), out)
	}

	for _, frag := range []string{"root{", "dir_2{dir_3{dir_4{}}}", "dir_5{file_4.txt,}", "file.txt,", "file_3.txt,"} {
		if !strings.Contains(out, frag) {
			t.Fatalf("%q missing from %q", frag, out)
		}
	}
}

func TestSerializeTreeIsDeterministic(t *testing.T) {
	want := "root{dir_1{dir_5{file_4.txt,}file_1.txt,}dir_2{dir_3{dir_4{}}}dir_6{file_3.txt,}file.txt,}"
	got, err := SerializeTree(buildTree(t))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("SerializeTree() = %q, want %q", got, want)
	}
}

func TestParseTreeInvertsSerialize(t *testing.T) {
	dir := buildTree(t)
	out, err := SerializeTree(dir)
	if err != nil {
		t.Fatal(err)
	}
	root, err := ParseTree(out)
	if err != nil {
		t.Fatalf("ParseTree() error = %v", err)
	}

	var dirs, files int
	root.Walk(func(n *Node, _ int) {
		if n.Dir {
			dirs++
		} else {
			files++
		}
	})
	if dirs != 7 || files != 4 {
		t.Fatalf("dirs=%d files=%d, want 7 and 4", dirs, files)
	}

	rendered := root.Render()
	if !strings.HasPrefix(rendered, "root/\n") || !strings.Contains(rendered, "\n      file_4.txt\n") {
		t.Fatalf("unexpected render:\n%s", rendered)
	}
}

func TestSerializeTreeSkipsReservedNames(t *testing.T) {
	dir := buildTree(t)
	for _, name := range []string{"a,b.txt", "x}y.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "odd{dir", "inner"), 0755); err != nil {
		t.Fatal(err)
	}

	out, err := SerializeTree(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := "root{dir_1{dir_5{file_4.txt,}file_1.txt,}dir_2{dir_3{dir_4{}}}dir_6{file_3.txt,}file.txt,}"
	if out != want {
		t.Fatalf("SerializeTree() = %q, want %q", out, want)
	}
	if _, err := ParseTree(out); err != nil {
		t.Fatalf("ParseTree() error = %v", err)
	}
}

func TestParseTreeMalformed(t *testing.T) {
	for _, in := range []string{"", "root", "root{", "root{a,", "root{a{}", "root{}}", "{}", "root{a}", "root{}x"} {
		if _, err := ParseTree(in); !errors.Is(err, ErrMalformedTree) {
			t.Fatalf("ParseTree(%q) expected ErrMalformedTree, got %v", in, err)
		}
	}
}
