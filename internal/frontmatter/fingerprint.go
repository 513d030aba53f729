package frontmatter

import (
	"errors"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Fields excluded from fingerprint canonicalization: mutable bookkeeping
// that must not force a rebuild by itself.
const (
	fieldLastmod = "lastmod"
	fieldUID     = "uid"
)

// Fingerprint computes the canonical content fingerprint for a document:
// frontmatter (minus the fingerprint field itself, lastmod and uid)
// serialized with LF newlines and a single trailing newline trimmed,
// hashed together with the body.
func Fingerprint(doc *Doc) (string, error) {
	if doc == nil {
		return "", errors.New("doc is nil")
	}

	forHash := make(map[string]any, len(doc.Fields))
	for k, v := range doc.Fields {
		switch k {
		case mdfp.FingerprintField, fieldLastmod, fieldUID:
			continue
		}
		forHash[k] = v
	}

	serialized := ""
	if len(forHash) > 0 {
		raw, err := yaml.Marshal(forHash)
		if err != nil {
			return "", err
		}
		serialized = strings.TrimSuffix(string(raw), "\n")
	}

	return mdfp.CalculateFingerprintFromParts(serialized, string(doc.Body)), nil
}
