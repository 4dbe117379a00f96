package library

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// NodeKind distinguishes folders from page images in a Tree.
type NodeKind string

const (
	KindDir   NodeKind = "dir"
	KindImage NodeKind = "image"
)

// Node is one entry of a Tree. Nodes reference each other by index into
// Tree.Nodes; the root has Parent -1. Directory nodes carry an index into
// Tree.Transcripts, image nodes carry -1.
type Node struct {
	Name       string   `json:"name" yaml:"name"`
	Path       string   `json:"path" yaml:"path"`
	Kind       NodeKind `json:"kind" yaml:"kind"`
	Parent     int      `json:"parent" yaml:"parent"`
	Children   []int    `json:"children,omitempty" yaml:"children,omitempty"`
	Transcript int      `json:"transcript" yaml:"transcript"`
}

// Tree is the reading view: folders and page images under a root, each
// folder paired with the concatenation of its own transcripts.
type Tree struct {
	Nodes       []Node   `json:"nodes" yaml:"nodes"`
	Transcripts []string `json:"transcripts" yaml:"transcripts"`
}

// BuildTree walks root. Only directories and image files become nodes.
func BuildTree(root string, order Order) (*Tree, error) {
	t := &Tree{}
	if _, err := t.addDir(root, filepath.Base(root), -1, order); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) addDir(path, name string, parent int, order Order) (int, error) {
	text, err := DirTranscript(path, order)
	if err != nil {
		return -1, err
	}
	t.Transcripts = append(t.Transcripts, text)
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Name:       name,
		Path:       path,
		Kind:       KindDir,
		Parent:     parent,
		Transcript: len(t.Transcripts) - 1,
	})

	entries, err := readDir(path, order)
	if err != nil {
		return -1, err
	}
	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		// Book folders may be symlinks; deeper links are not followed.
		isDir := e.IsDir() || (parent < 0 && isDirEntry(path, e))
		switch {
		case isDir:
			ci, err := t.addDir(child, e.Name(), idx, order)
			if err != nil {
				return -1, err
			}
			t.Nodes[idx].Children = append(t.Nodes[idx].Children, ci)
		case IsImage(e.Name()):
			t.Nodes = append(t.Nodes, Node{
				Name:       e.Name(),
				Path:       child,
				Kind:       KindImage,
				Parent:     idx,
				Transcript: -1,
			})
			t.Nodes[idx].Children = append(t.Nodes[idx].Children, len(t.Nodes)-1)
		}
	}
	return idx, nil
}

// Root returns the index of the root node.
func (t *Tree) Root() int { return 0 }

// TranscriptOf returns the transcript attached to node i, or "" for images.
func (t *Tree) TranscriptOf(i int) string {
	if i < 0 || i >= len(t.Nodes) || t.Nodes[i].Transcript < 0 {
		return ""
	}
	return t.Transcripts[t.Nodes[i].Transcript]
}

// Find returns the node whose path relative to the root is rel ("" or "."
// for the root itself).
func (t *Tree) Find(rel string) (int, bool) {
	if len(t.Nodes) == 0 {
		return -1, false
	}
	want := filepath.Join(t.Nodes[0].Path, filepath.FromSlash(rel))
	for i, n := range t.Nodes {
		if n.Path == want {
			return i, true
		}
	}
	return -1, false
}

// Match returns the indices of non-root nodes whose name contains sub.
func (t *Tree) Match(sub string, mode FilterMode) []int {
	var out []int
	for i := 1; i < len(t.Nodes); i++ {
		if mode.Matches(t.Nodes[i].Name, sub) {
			out = append(out, i)
		}
	}
	return out
}

// Visible returns the set of nodes to show for a filter: every match plus
// its ancestors, so matches stay reachable from the root.
func (t *Tree) Visible(sub string, mode FilterMode) map[int]bool {
	vis := map[int]bool{}
	if len(t.Nodes) > 0 {
		vis[0] = true
	}
	for _, i := range t.Match(sub, mode) {
		for j := i; j >= 0 && !vis[j]; j = t.Nodes[j].Parent {
			vis[j] = true
		}
	}
	return vis
}

// Render prints the tree as an indented outline, limited to visible nodes
// when vis is non-nil.
func (t *Tree) Render(w io.Writer, vis map[int]bool) error {
	if len(t.Nodes) == 0 {
		return nil
	}
	return t.render(w, 0, 0, vis)
}

func (t *Tree) render(w io.Writer, i, depth int, vis map[int]bool) error {
	if vis != nil && !vis[i] {
		return nil
	}
	n := t.Nodes[i]
	name := n.Name
	if n.Kind == KindDir {
		name += "/"
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := t.render(w, c, depth+1, vis); err != nil {
			return err
		}
	}
	return nil
}
