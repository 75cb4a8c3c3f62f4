// Package document models the synchronized configuration file as a
// structured document with a canonical serialized form and a
// content-addressed hash. Two documents are equal iff their hashes match,
// regardless of formatting differences in the source encoding.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when the top level of a document is not a mapping.
var ErrNotMapping = errors.New("document root is not a mapping")

// Document is a parsed configuration document: string keys mapping to
// scalar, mapping, or sequence values.
type Document map[string]any

// Parse decodes raw YAML into a Document. Empty input parses to an empty
// document. A non-mapping root is an error.
func Parse(raw []byte) (Document, error) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if v == nil {
		return Document{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return Document(m), nil
}

// Canonical returns the deterministic serialized form of the document.
// The YAML encoder emits mapping keys in sorted order, so semantically
// identical documents always produce identical bytes.
func (d Document) Canonical() ([]byte, error) {
	if len(d) == 0 {
		return []byte{}, nil
	}
	out, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}
	return out, nil
}

// Hash returns the hex-encoded SHA-256 digest of the canonical form.
func (d Document) Hash() (string, error) {
	canon, err := d.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes canonicalizes raw document bytes and returns their hash.
func HashBytes(raw []byte) (string, error) {
	doc, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return doc.Hash()
}
