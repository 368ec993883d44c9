package codegen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/blockgraph/pkg/ontology"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// Manifest is the serialisable summary of a traversal: what was asked for, every type
// reached, and each type's direct and transitive dependencies.
type Manifest struct {
	TraversalID string               `yaml:"traversal_id" json:"traversalId"`
	GeneratedAt time.Time            `yaml:"generated_at" json:"generatedAt"`
	Requested   []types.VersionedURL `yaml:"requested" json:"requested"`
	Types       []ManifestType       `yaml:"types" json:"types"`
	Pending     []types.VersionedURL `yaml:"pending,omitempty" json:"pending,omitempty"`
}

type ManifestType struct {
	ID         types.VersionedURL     `yaml:"id" json:"id"`
	Kind       types.OntologyTypeKind `yaml:"kind" json:"kind"`
	Title      string                 `yaml:"title" json:"title"`
	DependsOn  []ontology.Dependency  `yaml:"depends_on,omitempty" json:"dependsOn,omitempty"`
	Transitive []types.VersionedURL   `yaml:"transitive,omitempty" json:"transitive,omitempty"`
}

// NewManifest summarises r. Types are ordered by id.
func NewManifest(r *Result, now time.Time) *Manifest {
	m := &Manifest{
		TraversalID: r.TraversalID,
		GeneratedAt: now.UTC(),
		Requested:   r.Requested,
		Pending:     r.Pending,
	}
	for _, t := range r.SortedTypes() {
		m.Types = append(m.Types, ManifestType{
			ID:         t.TypeID(),
			Kind:       t.TypeKind(),
			Title:      t.Title(),
			DependsOn:  ontology.Dependencies(t),
			Transitive: r.Dependencies.GetDependenciesForType(t.TypeID()),
		})
	}
	return m
}

// Type returns the entry for id, or nil.
func (m *Manifest) Type(id types.VersionedURL) *ManifestType {
	for i := range m.Types {
		if m.Types[i].ID == id {
			return &m.Types[i]
		}
	}
	return nil
}

// WriteYAML encodes m to w.
func (m *Manifest) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}

// WriteFile writes m as YAML to path, creating parent directories.
func (m *Manifest) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := m.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadManifest decodes a YAML manifest.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
