// Package filetree projects a flat list of project files into a folder hierarchy.
package filetree

import (
	"sort"
	"strings"

	"prompt2web_server/internal/types"
)

// Kind distinguishes folders from files.
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// Node is one entry of the derived tree. Children are ordered folders first,
// then by name.
type Node struct {
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Path     string  `json:"path"`
	Language string  `json:"language,omitempty"`
	Children []*Node `json:"children"`
}

// Build derives a fresh tree from files. Folders with the same name under the same
// parent are shared. The input is never modified.
func Build(files []types.File) []*Node {
	root := []*Node{}

	for _, file := range files {
		parts := strings.Split(file.Path, "/")
		level := &root

		for i, part := range parts {
			isFile := i == len(parts)-1

			if existing := find(*level, part, isFile); existing != nil {
				level = &existing.Children
				continue
			}

			node := &Node{
				Name:     part,
				Kind:     KindFolder,
				Path:     strings.Join(parts[:i+1], "/"),
				Children: []*Node{},
			}
			if isFile {
				node.Kind = KindFile
				node.Path = file.Path
				node.Language = file.Language
			}
			*level = append(*level, node)
			level = &node.Children
		}
	}

	sortNodes(root)
	return root
}

// find returns the sibling to reuse for part. A folder is reused for intermediate
// segments; a final segment never merges into an existing node.
func find(nodes []*Node, name string, isFile bool) *Node {
	if isFile {
		return nil
	}
	for _, n := range nodes {
		if n.Name == name && n.Kind == KindFolder {
			return n
		}
	}
	return nil
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == KindFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// Walk visits every node depth-first in display order.
func Walk(nodes []*Node, fn func(node *Node, depth int)) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(node *Node, depth int)) {
	for _, n := range nodes {
		fn(n, depth)
		walk(n.Children, depth+1, fn)
	}
}
