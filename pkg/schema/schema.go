// Package schema holds the controlled vocabulary of entity labels and
// relationship types. Every label that reaches a store operation has been
// validated here first.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidLabel      = errors.New("label not in vocabulary")
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// NodeType is an entity label with the description shown to the extractor.
type NodeType struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RelationshipType is a relationship label with the description shown to the extractor.
type RelationshipType struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type vocabularyFile struct {
	Nodes         []NodeType         `json:"nodes" yaml:"nodes"`
	Relationships []RelationshipType `json:"relationships" yaml:"relationships"`
}

// Vocabulary is the closed set of permitted labels. It is immutable after
// construction and safe for concurrent use.
type Vocabulary struct {
	nodes         []NodeType
	relationships []RelationshipType

	labels   map[string]string
	relTypes map[string]string
}

// IsIdentifier reports whether s can be used verbatim as a graph label.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// New builds a vocabulary. Labels must be identifiers and unique ignoring case.
func New(nodes []NodeType, relationships []RelationshipType) (*Vocabulary, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no node labels", ErrInvalidVocabulary)
	}
	v := &Vocabulary{
		nodes:         append([]NodeType(nil), nodes...),
		relationships: append([]RelationshipType(nil), relationships...),
		labels:        make(map[string]string, len(nodes)),
		relTypes:      make(map[string]string, len(relationships)),
	}
	for _, n := range nodes {
		if !IsIdentifier(n.Label) {
			return nil, fmt.Errorf("%w: node label %q", ErrInvalidVocabulary, n.Label)
		}
		key := strings.ToLower(n.Label)
		if _, dup := v.labels[key]; dup {
			return nil, fmt.Errorf("%w: duplicate node label %q", ErrInvalidVocabulary, n.Label)
		}
		v.labels[key] = n.Label
	}
	for _, r := range relationships {
		if !IsIdentifier(r.Type) {
			return nil, fmt.Errorf("%w: relationship type %q", ErrInvalidVocabulary, r.Type)
		}
		key := strings.ToUpper(r.Type)
		if _, dup := v.relTypes[key]; dup {
			return nil, fmt.Errorf("%w: duplicate relationship type %q", ErrInvalidVocabulary, r.Type)
		}
		v.relTypes[key] = r.Type
	}
	return v, nil
}

// Load reads a vocabulary from a .json, .yaml or .yml file.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a vocabulary document. format is a file extension; anything
// other than .yaml/.yml is treated as JSON.
func Parse(data []byte, format string) (*Vocabulary, error) {
	var f vocabularyFile
	switch strings.ToLower(format) {
	case ".yaml", ".yml", "yaml", "yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVocabulary, err)
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidVocabulary, err)
		}
	}
	return New(f.Nodes, f.Relationships)
}

// Nodes returns the entity labels in configuration order.
func (v *Vocabulary) Nodes() []NodeType {
	return append([]NodeType(nil), v.nodes...)
}

// Relationships returns the relationship types in configuration order.
func (v *Vocabulary) Relationships() []RelationshipType {
	return append([]RelationshipType(nil), v.relationships...)
}

// Labels returns the entity labels in configuration order.
func (v *Vocabulary) Labels() []string {
	out := make([]string, 0, len(v.nodes))
	for _, n := range v.nodes {
		out = append(out, n.Label)
	}
	return out
}

// ValidateLabel normalises an extracted entity type (spaces removed, case
// folded) and returns the canonical vocabulary label.
func (v *Vocabulary) ValidateLabel(raw string) (string, error) {
	normalized := strings.Join(strings.Fields(raw), "")
	if label, ok := v.labels[strings.ToLower(normalized)]; ok {
		return label, nil
	}
	return "", fmt.Errorf("%w: entity type %q", ErrInvalidLabel, raw)
}

// ValidateRelationshipType normalises an extracted relationship type (upper
// case, spaces and hyphens as underscores) and returns the canonical type.
func (v *Vocabulary) ValidateRelationshipType(raw string) (string, error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(raw), "_"))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if rel, ok := v.relTypes[normalized]; ok {
		return rel, nil
	}
	return "", fmt.Errorf("%w: relationship type %q", ErrInvalidLabel, raw)
}

// HasLabel reports whether label is a canonical entity label.
func (v *Vocabulary) HasLabel(label string) bool {
	canonical, ok := v.labels[strings.ToLower(label)]
	return ok && canonical == label
}
