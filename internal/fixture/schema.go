// Package fixture loads serializer declarations and domain records from YAML files.
//
// A fixture describes the serializers to register, the records to render and, optionally,
// SQL tables the records are read from:
//
//	types:
//	  Post:
//	    attributes: [id, title, {name: body, unless: draft}]
//	    belongs_to: [author]
//	    has_many: [{name: comments, foreign_key: post_id}]
//	    cache: {key: posts}
//	records:
//	  Post:
//	    - {id: 1, title: Hello, author: 9}
//	tables:
//	  Comment: {query: "SELECT id, body, post_id FROM comments"}
//	root: {type: Post, ids: [1]}
package fixture

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFixture is returned for fixtures that cannot be turned into serializers.
var ErrInvalidFixture = errors.New("invalid fixture")

// Schema is the decoded form of a fixture file.
type Schema struct {
	Types    map[string]TypeSpec         `yaml:"types"`
	Records  map[string][]map[string]any `yaml:"records"`
	Tables   map[string]TableSpec        `yaml:"tables"`
	Database *DatabaseSpec               `yaml:"database"`
	Root     RootSpec                    `yaml:"root"`
}

// TypeSpec declares the serializer of one model type.
type TypeSpec struct {
	Namespace  string            `yaml:"namespace"`
	Type       string            `yaml:"type"`
	RootKey    string            `yaml:"root_key"`
	Attributes []AttributeSpec   `yaml:"attributes"`
	HasMany    []AssociationSpec `yaml:"has_many"`
	HasOne     []AssociationSpec `yaml:"has_one"`
	BelongsTo  []AssociationSpec `yaml:"belongs_to"`
	Cache      *CacheSpec        `yaml:"cache"`
	// Links maps link names to URL templates; "{id}" is replaced with the object id.
	Links map[string]string `yaml:"links"`
	Meta  map[string]any    `yaml:"meta"`
}

// AttributeSpec declares one attribute. A bare string is shorthand for {name: <string>}.
type AttributeSpec struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	// If and Unless name a record attribute whose truthiness decides inclusion.
	If     string `yaml:"if"`
	Unless string `yaml:"unless"`
}

// AssociationSpec declares one association. A bare string is shorthand for {name: <string>}.
type AssociationSpec struct {
	Name string `yaml:"name"`
	// Target is the model type of the associated records. Defaults to the camel-cased
	// singular of Name.
	Target      string `yaml:"target"`
	Key         string `yaml:"key"`
	Serializer  string `yaml:"serializer"`
	ForeignKey  string `yaml:"foreign_key"`
	Polymorphic bool   `yaml:"polymorphic"`
	// IncludeData is one of "always", "never" or "if_sideloaded".
	IncludeData string `yaml:"include_data"`
	If          string `yaml:"if"`
	Unless      string `yaml:"unless"`
}

// CacheSpec mirrors serializer.CacheSettings.
type CacheSpec struct {
	Key        string   `yaml:"key"`
	Only       []string `yaml:"only"`
	Except     []string `yaml:"except"`
	SkipDigest bool     `yaml:"skip_digest"`
}

// TableSpec reads the records of a type with a SQL query.
type TableSpec struct {
	Query string `yaml:"query"`
}

// DatabaseSpec names the database tables are read from.
type DatabaseSpec struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RootSpec selects the resource rendered by default.
type RootSpec struct {
	Type string `yaml:"type"`
	IDs  []any  `yaml:"ids"`
	// Collection renders a list even when a single id is given.
	Collection bool `yaml:"collection"`
}

// UnmarshalYAML accepts a bare attribute name.
func (a *AttributeSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Name = node.Value
		return nil
	}
	type plain AttributeSpec
	return node.Decode((*plain)(a))
}

// UnmarshalYAML accepts a bare association name.
func (a *AssociationSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Name = node.Value
		return nil
	}
	type plain AssociationSpec
	return node.Decode((*plain)(a))
}

// Load reads and parses a fixture file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	var errs []error
	for model, spec := range s.Types {
		for _, attr := range spec.Attributes {
			if attr.Name == "" {
				errs = append(errs, fmt.Errorf("%w: %s has an attribute without a name", ErrInvalidFixture, model))
			}
		}
		for _, assoc := range spec.associations() {
			if assoc.spec.Name == "" {
				errs = append(errs, fmt.Errorf("%w: %s has an association without a name", ErrInvalidFixture, model))
			}
			switch assoc.spec.IncludeData {
			case "", "always", "never", "if_sideloaded":
			default:
				errs = append(errs, fmt.Errorf("%w: %s.%s: include_data %q", ErrInvalidFixture, model, assoc.spec.Name, assoc.spec.IncludeData))
			}
		}
	}
	for model := range s.Records {
		if _, ok := s.Types[model]; !ok {
			errs = append(errs, fmt.Errorf("%w: records for undeclared type %s", ErrInvalidFixture, model))
		}
	}
	for model, table := range s.Tables {
		if _, ok := s.Types[model]; !ok {
			errs = append(errs, fmt.Errorf("%w: table for undeclared type %s", ErrInvalidFixture, model))
		}
		if table.Query == "" {
			errs = append(errs, fmt.Errorf("%w: table for %s has no query", ErrInvalidFixture, model))
		}
	}
	if s.Root.Type != "" {
		if _, ok := s.Types[s.Root.Type]; !ok {
			errs = append(errs, fmt.Errorf("%w: root type %s is not declared", ErrInvalidFixture, s.Root.Type))
		}
	}
	return errors.Join(errs...)
}

type kindedAssociation struct {
	kind string
	spec AssociationSpec
}

// associations lists the associations in declaration order: belongs_to, has_one, has_many.
func (t TypeSpec) associations() []kindedAssociation {
	var out []kindedAssociation
	for _, a := range t.BelongsTo {
		out = append(out, kindedAssociation{kind: "belongs_to", spec: a})
	}
	for _, a := range t.HasOne {
		out = append(out, kindedAssociation{kind: "has_one", spec: a})
	}
	for _, a := range t.HasMany {
		out = append(out, kindedAssociation{kind: "has_many", spec: a})
	}
	return out
}
