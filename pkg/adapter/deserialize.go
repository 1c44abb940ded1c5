package adapter

import (
	"fmt"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
)

// ParseOptions control JSON:API deserialization.
type ParseOptions struct {
	// Only keeps only these attributes and relationships (names as sent).
	Only []string
	// Except drops these attributes and relationships. Ignored when Only is set.
	Except []string
	// Keys renames fields after the key transform: {"author": "user"} yields "user_id".
	Keys map[string]string
	// Polymorphic lists relationships whose type is kept as <name>_type.
	Polymorphic []string
	// KeyTransform applied to incoming keys; defaults to underscore.
	KeyTransform string
}

// Parse converts a JSON:API document into a flat attribute map:
//
//	attributes        copied, keys transformed
//	data.id           "id"
//	to-one            "<name>_id"   (and "<name>_type" when polymorphic)
//	to-many           "<name>_ids"
//
// A malformed document returns an *InvalidDocumentError.
func Parse(document any, opts ParseOptions) (map[string]any, error) {
	transform, err := LookupKeyTransform(firstNonEmpty(opts.KeyTransform, TransformUnderscore))
	if err != nil {
		return nil, err
	}
	if reasons := validateDocument(document); len(reasons) > 0 {
		return nil, &InvalidDocumentError{Reasons: reasons}
	}

	data := document.(map[string]any)["data"].(map[string]any)
	attributes, _ := data["attributes"].(map[string]any)
	relationships, _ := data["relationships"].(map[string]any)

	out := make(map[string]any)
	for name, value := range filterFields(attributes, opts) {
		out[fieldKey(transform(name), opts)] = TransformKeys(value, transform)
	}
	if id, ok := data["id"]; ok && id != nil {
		out["id"] = id
	}

	for name, value := range filterFields(relationships, opts) {
		key := singularize(fieldKey(transform(name), opts))
		linkage := value.(map[string]any)["data"]

		switch ids := linkage.(type) {
		case []any:
			list := make([]any, 0, len(ids))
			for _, ri := range ids {
				if m, ok := ri.(map[string]any); ok {
					list = append(list, m["id"])
				}
			}
			out[key+"_ids"] = list
		case map[string]any:
			out[key+"_id"] = ids["id"]
		default:
			out[key+"_id"] = nil
		}

		if contains(opts.Polymorphic, name) {
			out[key+"_type"] = polymorphicType(linkage)
		}
	}
	return out, nil
}

// ParseLenient is like Parse but returns an empty map for malformed documents.
func ParseLenient(document any, opts ParseOptions) map[string]any {
	out, err := Parse(document, opts)
	if err != nil {
		return map[string]any{}
	}
	return out
}

func validateDocument(document any) []Reason {
	doc, ok := document.(map[string]any)
	if !ok {
		return []Reason{{Pointer: "/", Detail: "expected an object"}}
	}
	data, ok := doc["data"].(map[string]any)
	if !ok {
		return []Reason{{Pointer: "/data", Detail: "expected an object"}}
	}
	if attrs, present := data["attributes"]; present && attrs != nil {
		if _, ok := attrs.(map[string]any); !ok {
			return []Reason{{Pointer: "/data/attributes", Detail: "expected an object or null"}}
		}
	}

	rels, present := data["relationships"]
	if !present || rels == nil {
		return nil
	}
	relationships, ok := rels.(map[string]any)
	if !ok {
		return []Reason{{Pointer: "/data/relationships", Detail: "expected an object or null"}}
	}

	var reasons []Reason
	for _, name := range sortedKeys(relationships) {
		rel, ok := relationships[name].(map[string]any)
		if _, hasData := rel["data"]; !ok || !hasData {
			reasons = append(reasons, Reason{
				Pointer: "/data/relationships/" + escapePointer(name),
				Detail:  "expected an object with a data member",
			})
		}
	}
	return reasons
}

func filterFields(fields map[string]any, opts ParseOptions) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch {
		case len(opts.Only) > 0:
			if !contains(opts.Only, k) {
				continue
			}
		case contains(opts.Except, k):
			continue
		}
		out[k] = v
	}
	return out
}

func fieldKey(name string, opts ParseOptions) string {
	if renamed, ok := opts.Keys[name]; ok {
		return renamed
	}
	return name
}

// polymorphicType converts a resource identifier type ("blog-posts") to a model name ("BlogPost").
func polymorphicType(linkage any) any {
	ri, ok := linkage.(map[string]any)
	if !ok {
		return nil
	}
	typ, ok := ri["type"].(string)
	if !ok || typ == "" {
		return nil
	}
	return amsstrings.ToCamelCase(singularize(amsstrings.ToSnakeCase(typ)))
}

// String form of reasons for logs.
func (r Reason) String() string {
	return fmt.Sprintf("%s: %s", r.Pointer, r.Detail)
}
