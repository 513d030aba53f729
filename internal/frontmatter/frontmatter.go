// Package frontmatter splits YAML frontmatter from Markdown documents
// and computes content fingerprints for change detection.
package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

var delimiter = []byte("---\n")

// Doc is a parsed Markdown document: frontmatter fields plus body.
type Doc struct {
	Fields map[string]any
	Body   []byte
	Had    bool // whether the source contained a frontmatter block
}

// Title returns the title field when present.
func (d *Doc) Title() string {
	if s, ok := d.Fields["title"].(string); ok {
		return s
	}
	return ""
}

// Description returns the description field when present.
func (d *Doc) Description() string {
	if s, ok := d.Fields["description"].(string); ok {
		return s
	}
	return ""
}

// Parse splits and decodes a Markdown document. Documents without a
// frontmatter block return an empty field map and the full input as body.
func Parse(content []byte) (*Doc, error) {
	raw, body, had, err := Split(content)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	return &Doc{Fields: fields, Body: body, Had: had}, nil
}

// Split separates the raw `---` delimited YAML frontmatter from the
// body. If the document does not start with a delimiter, had is false
// and body is the full input. CRLF input is normalized to LF first.
func Split(content []byte) (raw []byte, body []byte, had bool, err error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, delimiter) {
		return nil, content, false, nil
	}

	rest := content[len(delimiter):]
	if bytes.HasPrefix(rest, delimiter) {
		// Empty frontmatter block.
		return []byte{}, rest[len(delimiter):], true, nil
	}

	closing := []byte("\n---\n")
	idx := bytes.Index(rest, closing)
	if idx < 0 {
		if bytes.HasSuffix(rest, []byte("\n---")) {
			return rest[:len(rest)-len("\n---")+1], []byte{}, true, nil
		}
		// An opening delimiter that is never closed is a thematic
		// break, not frontmatter.
		return nil, content, false, nil
	}
	return rest[:idx+1], rest[idx+len(closing):], true, nil
}

// Join reassembles a document from decoded fields and body.
func Join(fields map[string]any, body []byte) ([]byte, error) {
	if len(fields) == 0 {
		return body, nil
	}
	raw, err := yaml.Marshal(fields)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 2*len(delimiter)+len(raw)+len(body))
	out = append(out, delimiter...)
	out = append(out, raw...)
	out = append(out, delimiter...)
	out = append(out, body...)
	return out, nil
}
