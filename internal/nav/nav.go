// Package nav models the navigation tree of a documentation site: an
// ordered, arbitrarily nested sequence of (label, path) pairs and
// sub-sections that defines the site's table of contents.
package nav

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Item is a single navigation entry: either a page leaf (Path set) or a
// section with Children. Label may be empty for bare-path leaves; use
// Title to resolve the display label.
type Item struct {
	Label    string
	Path     string
	Children []*Item
}

// IsSection reports whether the item groups child entries instead of
// pointing at a page.
func (it *Item) IsSection() bool { return len(it.Children) > 0 }

// Title returns the display label, inferring one from the path when the
// entry was given as a bare string.
func (it *Item) Title() string {
	if it.Label != "" {
		return it.Label
	}
	return InferTitle(it.Path)
}

// Tree is the ordered navigation tree. A zero Tree is valid and means
// "no explicit navigation configured".
type Tree struct {
	Items []*Item
}

// IsEmpty reports whether no navigation was configured.
func (t *Tree) IsEmpty() bool { return t == nil || len(t.Items) == 0 }

// UnmarshalYAML decodes the heterogeneous nav sequence: bare path
// strings, single-key "label: path" maps, and single-key
// "label: [children]" section maps.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	items, err := decodeItems(value)
	if err != nil {
		return err
	}
	t.Items = items
	return nil
}

// MarshalYAML re-encodes the tree in the same shape it was declared in,
// so a load/marshal cycle is stable.
func (t Tree) MarshalYAML() (any, error) {
	return encodeItems(t.Items), nil
}

func decodeItems(value *yaml.Node) ([]*Item, error) {
	if value.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("nav: expected a sequence at line %d, got %s", value.Line, kindName(value.Kind))
	}
	items := make([]*Item, 0, len(value.Content))
	for _, n := range value.Content {
		item, err := decodeItem(n)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem(n *yaml.Node) (*Item, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		var p string
		if err := n.Decode(&p); err != nil {
			return nil, fmt.Errorf("nav: invalid entry at line %d: %w", n.Line, err)
		}
		return &Item{Path: p}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, fmt.Errorf("nav: entry at line %d must have exactly one key", n.Line)
		}
		key, val := n.Content[0], n.Content[1]
		var label string
		if err := key.Decode(&label); err != nil {
			return nil, fmt.Errorf("nav: invalid label at line %d: %w", key.Line, err)
		}
		switch val.Kind {
		case yaml.ScalarNode:
			var p string
			if err := val.Decode(&p); err != nil {
				return nil, fmt.Errorf("nav: invalid path for %q at line %d: %w", label, val.Line, err)
			}
			return &Item{Label: label, Path: p}, nil
		case yaml.SequenceNode:
			children, err := decodeItems(val)
			if err != nil {
				return nil, err
			}
			return &Item{Label: label, Children: children}, nil
		default:
			return nil, fmt.Errorf("nav: entry %q at line %d must map to a path or a list", label, val.Line)
		}
	default:
		return nil, fmt.Errorf("nav: unexpected %s at line %d", kindName(n.Kind), n.Line)
	}
}

func encodeItems(items []*Item) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, encodeItem(it))
	}
	return out
}

func encodeItem(it *Item) any {
	if it.IsSection() {
		n := &yaml.Node{Kind: yaml.MappingNode}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: it.Label}
		valNode := &yaml.Node{}
		_ = valNode.Encode(encodeItems(it.Children))
		n.Content = append(n.Content, keyNode, valNode)
		return n
	}
	if it.Label == "" {
		return it.Path
	}
	return map[string]string{it.Label: it.Path}
}

// Walk visits every item depth-first in declaration order. Returning an
// error from fn stops the walk.
func (t *Tree) Walk(fn func(it *Item, depth int) error) error {
	return walkItems(t.Items, 0, fn)
}

func walkItems(items []*Item, depth int, fn func(*Item, int) error) error {
	for _, it := range items {
		if err := fn(it, depth); err != nil {
			return err
		}
		if it.IsSection() {
			if err := walkItems(it.Children, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Pages returns every leaf path in declaration order.
func (t *Tree) Pages() []string {
	var pages []string
	_ = t.Walk(func(it *Item, _ int) error {
		if !it.IsSection() && it.Path != "" {
			pages = append(pages, it.Path)
		}
		return nil
	})
	return pages
}

// FromPages builds a flat tree from page paths, used when the
// configuration declares no nav. Pages sort alphabetically, with index
// pages first among their directory siblings.
func FromPages(pages []string) *Tree {
	ordered := slices.Clone(pages)
	slices.SortFunc(ordered, comparePages)
	t := &Tree{Items: make([]*Item, 0, len(ordered))}
	for _, p := range ordered {
		t.Items = append(t.Items, &Item{Path: p})
	}
	return t
}

func comparePages(a, b string) int {
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai := i == len(as)-1 && isIndexFile(as[i])
		bi := i == len(bs)-1 && isIndexFile(bs[i])
		if ai != bi {
			if ai {
				return -1
			}
			return 1
		}
		return strings.Compare(as[i], bs[i])
	}
	return len(as) - len(bs)
}

func isIndexFile(name string) bool {
	return name == "index.md" || name == "README.md"
}

var titleCaser = cases.Title(language.English)

// InferTitle derives a display label from a document path:
// "getting-started/install_notes.md" becomes "Install Notes", and any
// index file takes its parent directory's name.
func InferTitle(p string) string {
	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if base == "index" || base == "README" {
		if dir := path.Base(path.Dir(p)); dir != "." && dir != "/" {
			base = dir
		} else {
			base = "Home"
		}
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return titleCaser.String(base)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
