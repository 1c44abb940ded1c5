package server

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/rails-api/active-model-serializers-sub000/internal/fixture"
	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
	"github.com/rails-api/active-model-serializers-sub000/internal/web/middleware"
	"github.com/rails-api/active-model-serializers-sub000/internal/web/query"
	"github.com/rails-api/active-model-serializers-sub000/internal/web/response"
	"github.com/rails-api/active-model-serializers-sub000/pkg/adapter"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// Handler serves the records of a fixture dataset.
//
//	GET  /healthz
//	GET  /{resource}        list, honouring include, fields[type], filter[attr], sort, page[...]
//	GET  /{resource}/{id}   one record
//	POST /deserialize       JSON:API document to flat attributes (?lenient=true never fails,
//	                        ?required=a,b answers 422 with field errors for missing attributes)
//
// The adapter is chosen by ?adapter=, then by an Accept header asking for JSON:API, then by
// the renderer's configuration.
type Handler struct {
	dataset  *fixture.Dataset
	renderer *adapter.Renderer
	logger   *zap.Logger
	models   map[string]string
}

// HandlerOption configures NewHandler.
type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	profiler bool
}

// WithProfiler mounts the pprof endpoints under /debug. They expose runtime internals and
// are meant for local use only.
func WithProfiler() HandlerOption {
	return func(o *handlerOptions) { o.profiler = true }
}

// NewHandler builds the router.
func NewHandler(ds *fixture.Dataset, renderer *adapter.Renderer, logger *zap.Logger, opts ...HandlerOption) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}
	h := &Handler{
		dataset:  ds,
		renderer: renderer,
		logger:   logger,
		models:   make(map[string]string),
	}
	for _, model := range ds.Types() {
		plural := inflection.Plural(amsstrings.ToSnakeCase(amsstrings.Demodulize(model)))
		h.models[plural] = model
		h.models[amsstrings.ToDashCase(plural)] = model
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if o.profiler {
		r.Mount("/debug", chimiddleware.Profiler())
	}
	r.Post("/deserialize", h.deserialize)
	r.Get("/{resource}", h.list)
	r.Get("/{resource}/{id}", h.show)

	return middleware.NewChain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger, "/healthz"),
	).Use(middleware.Serialization()).Then(r)
}

func (h *Handler) model(r *http.Request) (string, error) {
	resource := chi.URLParam(r, "resource")
	model, ok := h.models[resource]
	if !ok {
		return "", fmt.Errorf("%w: unknown resource %q", response.ErrNotFound, resource)
	}
	return model, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	model, err := h.model(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	records := filterRecords(h.dataset.All(model), query.ParseFilter(r))
	sortRecords(records, query.ParseSort(r))

	page, err := query.ParsePage(r, defaultPageSize, maxPageSize)
	if err != nil {
		h.fail(w, fmt.Errorf("%w: %v", response.ErrBadRequest, err))
		return
	}

	var resource any = records
	if page.Requested {
		resource = adapter.NewPage(records, page.Number, page.Size)
	}
	h.render(w, r, resource)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	model, err := h.model(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	rec, err := h.dataset.Find(model, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, fmt.Errorf("%w: %v", response.ErrNotFound, err))
		return
	}
	h.render(w, r, rec)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, resource any) {
	opts := adapter.Options{
		Adapter: r.URL.Query().Get("adapter"),
		Context: middleware.SerializationContext(r.Context()),
	}
	if opts.Adapter == "" && response.IsJSONAPI(r) {
		opts.Adapter = "json_api"
	}
	// An explicit empty include turns the configured default off.
	if r.URL.Query().Has("include") {
		opts.Include = query.ParseInclude(r)
	}
	if fields := query.ParseFields(r); len(fields) > 0 {
		opts.Fields = fields
	}

	doc, err := h.renderer.Render(r.Context(), resource, opts)
	if err != nil {
		h.fail(w, err)
		return
	}

	a, err := h.renderer.AdapterFor(opts.Adapter)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := response.RenderConditional(w, r, doc, a.Name() == "json_api"); err != nil {
		h.fail(w, err)
	}
}

func (h *Handler) deserialize(w http.ResponseWriter, r *http.Request) {
	var document any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&document); err != nil {
		h.fail(w, fmt.Errorf("%w: %v", response.ErrBadRequest, err))
		return
	}

	q := r.URL.Query()
	opts := adapter.ParseOptions{
		Only:         splitParam(q.Get("only")),
		Except:       splitParam(q.Get("except")),
		Polymorphic:  splitParam(q.Get("polymorphic")),
		KeyTransform: q.Get("key_transform"),
	}

	var attrs map[string]any
	if lenient, _ := strconv.ParseBool(q.Get("lenient")); lenient {
		attrs = adapter.ParseLenient(document, opts)
	} else {
		var err error
		if attrs, err = adapter.Parse(document, opts); err != nil {
			h.fail(w, err)
			return
		}
	}

	if missing := missingFields(attrs, splitParam(q.Get("required"))); len(missing) > 0 {
		if err := response.RenderFieldErrors(w, missing); err != nil {
			h.logger.Error("failed to render field errors", zap.Error(err))
		}
		return
	}

	if err := response.RenderDocument(w, http.StatusOK, attrs, false); err != nil {
		h.fail(w, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := response.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	if renderErr := response.RenderError(w, err); renderErr != nil {
		h.logger.Error("failed to render error", zap.Error(renderErr))
	}
}

// missingFields reports each required attribute that is absent or null after parsing.
func missingFields(attrs map[string]any, required []string) map[string][]string {
	missing := make(map[string][]string)
	for _, name := range required {
		if v, ok := attrs[name]; !ok || v == nil {
			missing[name] = []string{"can't be blank"}
		}
	}
	return missing
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// filterRecords keeps records whose attributes equal every filter value.
func filterRecords(records []*serializer.Record, filters map[string]string) []*serializer.Record {
	out := make([]*serializer.Record, 0, len(records))
	for _, rec := range records {
		keep := true
		for attr, want := range filters {
			if got, ok := rec.Attrs[attr]; !ok || fmt.Sprint(got) != want {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}
	return out
}

// sortRecords orders records by the sort fields; "-" means descending.
func sortRecords(records []*serializer.Record, fields []string) {
	if len(fields) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b *serializer.Record) int {
		for _, field := range fields {
			name, desc := strings.CutPrefix(field, "-")
			c := compareValues(a.Attrs[name], b.Attrs[name])
			if desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareValues(a, b any) int {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		return cmp.Compare(af, bf)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
