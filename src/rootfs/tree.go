package rootfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logs "github.com/danmuck/smplog"
)

// reserved are the format's structural bytes. Entries whose names contain one
// cannot be represented and are left out of the listing.
const reserved = "{},"

// SerializeTree renders dir as a single bracketed node:
//
//	root{dir_1{file.txt,dir_2{file.txt,file.pdf,}}dir_3{dir_4{dir_5{}}}}
//
// Every directory is its name followed by its contents in braces, every other
// entry is its name followed by a comma. Entries are emitted in lexical
// order. Symlinks are listed as files and never followed. Entries named with
// '{', '}' or ',' are skipped; the root name itself is emitted as is.
func SerializeTree(dir string) (string, error) {
	var sb strings.Builder
	if err := serialize(&sb, dir, filepath.Base(dir)); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func serialize(sb *strings.Builder, path, name string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", path, err)
	}

	sb.WriteString(name)
	sb.WriteByte('{')
	for _, e := range entries {
		if strings.ContainsAny(e.Name(), reserved) {
			logs.Warnf("tree: skipping %q: name contains one of %q", filepath.Join(path, e.Name()), reserved)
			continue
		}
		if !e.IsDir() {
			sb.WriteString(e.Name())
			sb.WriteByte(',')
			continue
		}
		if err := serialize(sb, filepath.Join(path, e.Name()), e.Name()); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

var ErrMalformedTree = errors.New("rootfs: malformed tree")

// Node is one parsed tree entry.
type Node struct {
	Name     string
	Dir      bool
	Children []*Node
}

// ParseTree is the inverse of SerializeTree.
func ParseTree(s string) (*Node, error) {
	p := &treeParser{s: s}
	name := p.name()
	if name == "" || !p.accept('{') {
		return nil, fmt.Errorf("%w: expected root node at %d", ErrMalformedTree, p.pos)
	}
	root := &Node{Name: name, Dir: true}
	if err := p.children(root); err != nil {
		return nil, err
	}
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("%w: trailing data at %d", ErrMalformedTree, p.pos)
	}
	return root, nil
}

type treeParser struct {
	s   string
	pos int
}

func (p *treeParser) name() string {
	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune("{},", rune(p.s[p.pos])) {
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *treeParser) accept(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// children consumes entries up to and including the closing brace of parent.
func (p *treeParser) children(parent *Node) error {
	for {
		if p.accept('}') {
			return nil
		}
		if p.pos >= len(p.s) {
			return fmt.Errorf("%w: unclosed %q", ErrMalformedTree, parent.Name)
		}
		name := p.name()
		switch {
		case p.accept(','):
			parent.Children = append(parent.Children, &Node{Name: name})
		case p.accept('{'):
			child := &Node{Name: name, Dir: true}
			if err := p.children(child); err != nil {
				return err
			}
			parent.Children = append(parent.Children, child)
		default:
			return fmt.Errorf("%w: unexpected input at %d", ErrMalformedTree, p.pos)
		}
	}
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Render draws the tree one entry per line, directories suffixed with '/'.
func (n *Node) Render() string {
	var sb strings.Builder
	n.Walk(func(e *Node, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(e.Name)
		if e.Dir {
			sb.WriteByte('/')
		}
		sb.WriteByte('\n')
	})
	return sb.String()
}
