package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/internal/fixture"
	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
)

type renderOptions struct {
	adapter      string
	include      string
	fields       []string
	typ          string
	ids          []string
	collection   bool
	keyTransform string
	root         string
	meta         []string
	indent       bool
}

func newRenderCommand(a *app) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <fixture.yaml>",
		Short: "Render fixture records as a document",
		Long: `Render the records selected by a fixture through one adapter.

The fixture's root section picks what is rendered unless --type is given.

Examples:
  amsrender render blog.yaml --adapter json_api --include author,comments
  amsrender render blog.yaml --type Post --id 1 --fields posts=title,body
  amsrender render blog.yaml --adapter json --root articles --meta total=2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.adapter, "adapter", "a", "", "adapter: attributes, json, json_api or flat_json")
	flags.StringVarP(&opts.include, "include", "i", "", "include directive, e.g. author,comments.author")
	flags.StringArrayVar(&opts.fields, "fields", nil, "sparse fieldset as type=a,b (repeatable)")
	flags.StringVarP(&opts.typ, "type", "t", "", "model type to render instead of the fixture root")
	flags.StringSliceVar(&opts.ids, "id", nil, "record ids to render (repeatable)")
	flags.BoolVar(&opts.collection, "collection", false, "render a single id as a collection")
	flags.StringVar(&opts.keyTransform, "key-transform", "", "key transform: camel, camel_lower, dash, underscore or unaltered")
	flags.StringVar(&opts.root, "root", "", "root key for the json and flat_json adapters")
	flags.StringArrayVar(&opts.meta, "meta", nil, "meta entry as key=value (repeatable)")
	flags.BoolVar(&opts.indent, "indent", true, "indent the output")

	return cmd
}

func (a *app) render(cmd *cobra.Command, path string, opts *renderOptions) error {
	ctx := cmd.Context()

	ds, err := a.loadDataset(ctx, path)
	if err != nil {
		return err
	}

	resource, err := selectResource(ds, opts)
	if err != nil {
		return err
	}

	renderOpts, err := opts.toOptions(cmd.Flags().Changed("include"))
	if err != nil {
		return err
	}

	store, closer, err := newStore(a.config.Cache, a.logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	renderer := adapter.NewRenderer(ds.Registry, a.config,
		adapter.WithStore(store),
		adapter.WithLogger(a.logger))

	doc, err := renderer.Render(ctx, resource, renderOpts)
	if err != nil {
		return err
	}

	var out []byte
	if opts.indent {
		out, err = json.MarshalIndent(doc, "", "  ")
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	a.logger.Debug("rendered", zap.String("fixture", path), zap.Int("bytes", len(out)))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func selectResource(ds *fixture.Dataset, opts *renderOptions) (any, error) {
	if opts.typ == "" {
		return ds.Resource()
	}
	ids := make([]any, len(opts.ids))
	for i, id := range opts.ids {
		ids[i] = id
	}
	return ds.Select(opts.typ, ids, opts.collection)
}

// toOptions converts the flags. An --include flag given explicitly, even empty, replaces
// the default includes.
func (o *renderOptions) toOptions(includeSet bool) (adapter.Options, error) {
	opts := adapter.Options{
		Adapter:      o.adapter,
		KeyTransform: o.keyTransform,
		Root:         o.root,
	}
	if includeSet {
		opts.Include = o.include
	}

	if len(o.fields) > 0 {
		opts.Fields = make(map[string][]string, len(o.fields))
		for _, entry := range o.fields {
			typ, list, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(typ) == "" {
				return adapter.Options{}, fmt.Errorf("invalid --fields %q: expected type=a,b", entry)
			}
			opts.Fields[strings.TrimSpace(typ)] = splitList(list)
		}
	}

	if len(o.meta) > 0 {
		opts.Meta = make(map[string]any, len(o.meta))
		for _, entry := range o.meta {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return adapter.Options{}, fmt.Errorf("invalid --meta %q: expected key=value", entry)
			}
			opts.Meta[strings.TrimSpace(key)] = metaValue(value)
		}
	}
	return opts, nil
}

// metaValue keeps JSON scalars typed so "total=2" renders as a number.
func metaValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
