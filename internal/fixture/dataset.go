package fixture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

var (
	// ErrUnresolvedReference is returned when a record refers to an id that does not exist.
	ErrUnresolvedReference = errors.New("unresolved record reference")

	// ErrNoDatabase is returned when a fixture declares tables but no database is available.
	ErrNoDatabase = errors.New("fixture declares tables but no database was given")

	// ErrNotFound is returned by Find and Resource for missing records.
	ErrNotFound = errors.New("record not found")
)

// Dataset holds the registry and linked records built from a Schema.
type Dataset struct {
	Registry *serializer.Registry

	schema  *Schema
	records map[string][]*serializer.Record
	index   map[string]map[string]*serializer.Record
}

// BuildOption configures Build.
type BuildOption func(*builder)

type builder struct {
	db     *sql.DB
	logger *zap.Logger
}

// WithDB sets the database tables are read from.
func WithDB(db *sql.DB) BuildOption {
	return func(b *builder) { b.db = db }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) BuildOption {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Build registers the declared serializers, loads inline and table records and links
// association references into record pointers.
func Build(ctx context.Context, s *Schema, opts ...BuildOption) (*Dataset, error) {
	b := &builder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Registry: reg,
		schema:   s,
		records:  make(map[string][]*serializer.Record),
		index:    make(map[string]map[string]*serializer.Record),
	}

	for _, model := range sortedKeys(s.Records) {
		for _, attrs := range s.Records[model] {
			ds.add(model, attrs)
		}
	}

	if len(s.Tables) > 0 {
		if b.db == nil {
			return nil, ErrNoDatabase
		}
		for _, model := range sortedKeys(s.Tables) {
			rows, err := LoadTable(ctx, b.db, s.Tables[model].Query)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s records: %w", model, err)
			}
			for _, attrs := range rows {
				ds.add(model, attrs)
			}
			b.logger.Debug("loaded fixture table",
				zap.String("type", model),
				zap.Int("rows", len(rows)))
		}
	}

	if err := ds.link(); err != nil {
		return nil, err
	}
	return ds, nil
}

func (ds *Dataset) add(model string, attrs map[string]any) {
	rec := serializer.NewRecord(model, attrs)
	switch v := attrs["updated_at"].(type) {
	case time.Time:
		rec.Version = v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			rec.Version = t
		}
	}

	ds.records[model] = append(ds.records[model], rec)
	if id, ok := attrs["id"]; ok && id != nil {
		if ds.index[model] == nil {
			ds.index[model] = make(map[string]*serializer.Record)
		}
		ds.index[model][idKey(id)] = rec
	}
}

// Find returns the record of model with the given id.
func (ds *Dataset) Find(model string, id any) (*serializer.Record, error) {
	rec, ok := ds.index[model][idKey(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, model, id)
	}
	return rec, nil
}

// All returns every record of model in load order.
func (ds *Dataset) All(model string) []*serializer.Record {
	return ds.records[model]
}

// Types returns the declared model types, sorted.
func (ds *Dataset) Types() []string {
	return sortedKeys(ds.schema.Types)
}

// Resource returns what the fixture's root section selects: one record, a list of records,
// or every record of the root type.
func (ds *Dataset) Resource() (any, error) {
	root := ds.schema.Root
	if root.Type == "" {
		return nil, fmt.Errorf("%w: fixture has no root type", ErrNotFound)
	}
	return ds.Select(root.Type, root.IDs, root.Collection)
}

// Select returns the records of model with the given ids. No ids selects every record.
// A single id renders as one object unless collection is set.
func (ds *Dataset) Select(model string, ids []any, collection bool) (any, error) {
	if len(ids) == 0 {
		return ds.All(model), nil
	}
	if len(ids) == 1 && !collection {
		return ds.Find(model, ids[0])
	}
	out := make([]*serializer.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := ds.Find(model, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// link replaces association references with record pointers.
//
//	belongs_to / has_one  attribute <name> or <foreign_key> holds the target id
//	has_many              attribute <name> holds a list of ids, otherwise targets whose
//	                      <foreign_key> (default <owner>_id) equals the owner id
//	polymorphic           the target type is read from <name>_type
func (ds *Dataset) link() error {
	var errs []error
	for _, model := range sortedKeys(ds.schema.Types) {
		spec := ds.schema.Types[model]
		for _, assoc := range spec.associations() {
			for _, rec := range ds.records[model] {
				if err := ds.linkOne(model, rec, assoc); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (ds *Dataset) linkOne(model string, rec *serializer.Record, assoc kindedAssociation) error {
	spec := assoc.spec
	target := targetType(spec, rec)

	if assoc.kind == "has_many" {
		if refs, ok := rec.Attrs[spec.Name].([]any); ok {
			linked := make([]*serializer.Record, 0, len(refs))
			for _, ref := range refs {
				found, err := ds.resolve(model, spec.Name, target, ref)
				if err != nil {
					return err
				}
				linked = append(linked, found)
			}
			rec.Attrs[spec.Name] = linked
			return nil
		}
		if _, ok := rec.Attrs[spec.Name]; ok {
			return nil
		}
		rec.Attrs[spec.Name] = ds.children(target, ownerKey(model, spec), rec.ID())
		return nil
	}

	ref, ok := rec.Attrs[spec.Name]
	if !ok {
		fk := spec.ForeignKey
		if fk == "" {
			fk = spec.Name + "_id"
		}
		ref, ok = rec.Attrs[fk]
	}
	if !ok && assoc.kind == "has_one" {
		if children := ds.children(target, ownerKey(model, spec), rec.ID()); len(children) > 0 {
			rec.Attrs[spec.Name] = children[0]
		}
		return nil
	}
	if !ok || ref == nil {
		return nil
	}
	if _, linked := ref.(*serializer.Record); linked {
		return nil
	}

	found, err := ds.resolve(model, spec.Name, target, ref)
	if err != nil {
		return err
	}
	rec.Attrs[spec.Name] = found
	return nil
}

func (ds *Dataset) resolve(model, name, target string, ref any) (*serializer.Record, error) {
	found, ok := ds.index[target][idKey(ref)]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s -> %s %v", ErrUnresolvedReference, model, name, target, ref)
	}
	return found, nil
}

func (ds *Dataset) children(target, fk string, ownerID any) []*serializer.Record {
	out := []*serializer.Record{}
	if ownerID == nil {
		return out
	}
	for _, child := range ds.records[target] {
		if v, ok := child.Attrs[fk]; ok && v != nil && idKey(v) == idKey(ownerID) {
			out = append(out, child)
		}
	}
	return out
}

func targetType(spec AssociationSpec, rec *serializer.Record) string {
	if spec.Polymorphic {
		if t, ok := rec.Attrs[spec.Name+"_type"].(string); ok && t != "" {
			return t
		}
	}
	if spec.Target != "" {
		return spec.Target
	}
	return amsstrings.ToCamelCase(inflection.Singular(spec.Name))
}

func ownerKey(model string, spec AssociationSpec) string {
	if spec.ForeignKey != "" {
		return spec.ForeignKey
	}
	return amsstrings.ToSnakeCase(amsstrings.Demodulize(model)) + "_id"
}

func idKey(id any) string {
	return fmt.Sprint(id)
}
