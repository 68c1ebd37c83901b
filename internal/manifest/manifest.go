// Package manifest loads the declarative resource descriptions published to
// the store.
//
// A manifest is kept as its YAML node tree so that arbitrary fields survive
// untouched and in document order; only the image field is ever rewritten.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dotcommander/blgate/internal/errs"
)

// FileName is the manifest file expected in every resource directory.
const FileName = "beamlit.yaml"

const (
	keyName  = "name"
	keyImage = "image"
)

// Manifest is a loaded resource manifest.
type Manifest struct {
	path string
	root *yaml.Node
}

// Path returns where the manifest for (category, key) lives under dir.
func Path(dir, category, key string) string {
	return filepath.Join(dir, category, key, FileName)
}

// Load reads and validates the manifest for (category, key) under dir.
func Load(dir, category, key string) (*Manifest, error) {
	path := Path(dir, category, key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Error{
			Kind:   errs.ErrNotFound,
			Err:    fmt.Errorf("manifest %s: %w", path, err),
			Reason: fmt.Sprintf("No manifest found for %s %s.", category, key),
		}
	}
	if err != nil {
		return nil, errs.Error{Err: fmt.Errorf("reading manifest %s: %w", path, err), Reason: "Could not read manifest."}
	}
	return Parse(path, data)
}

// Parse decodes and validates manifest content. path is only used in errors.
func Parse(path string, data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(path, fmt.Errorf("parsing manifest %s: %w", path, err))
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, parseError(path, fmt.Errorf("manifest %s: top level must be a mapping", path))
	}

	m := &Manifest{path: path, root: doc.Content[0]}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseError(path string, err error) error {
	return errs.Error{Kind: errs.ErrParse, Err: err, Reason: fmt.Sprintf("Manifest %s is malformed.", path)}
}

// File returns the path the manifest was loaded from.
func (m *Manifest) File() string {
	return m.path
}

// Name returns the declared resource name.
func (m *Manifest) Name() string {
	if v := m.lookup(keyName); v != nil && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

// Image returns the current image reference, or "" when unset.
func (m *Manifest) Image() string {
	if v := m.lookup(keyImage); v != nil && v.Kind == yaml.ScalarNode && v.Tag != "!!null" {
		return v.Value
	}
	return ""
}

// SetImage stamps the build image reference. An existing image field is
// replaced in place; otherwise the field is appended. An empty ref is stored
// as null.
func (m *Manifest) SetImage(ref string) {
	value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ref}
	if ref == "" {
		value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	for i := 0; i+1 < len(m.root.Content); i += 2 {
		if m.root.Content[i].Value == keyImage {
			m.root.Content[i+1] = value
			return
		}
	}
	m.root.Content = append(m.root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: keyImage},
		value,
	)
}

func (m *Manifest) lookup(key string) *yaml.Node {
	for i := 0; i+1 < len(m.root.Content); i += 2 {
		if m.root.Content[i].Value == key {
			return resolveAlias(m.root.Content[i+1])
		}
	}
	return nil
}

// MarshalJSON encodes the manifest as a JSON object with keys in document
// order.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, m.root); err != nil {
		return nil, fmt.Errorf("encoding manifest %s: %w", m.path, err)
	}
	return buf.Bytes(), nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func encodeNode(buf *bytes.Buffer, n *yaml.Node) error {
	n = resolveAlias(n)
	if n == nil {
		buf.WriteString("null")
		return nil
	}

	switch n.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(resolveAlias(n.Content[i]).Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		bts, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(bts)
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return encodeNode(buf, n.Content[0])
	default:
		return fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
	return nil
}
