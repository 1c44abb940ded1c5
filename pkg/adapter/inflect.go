package adapter

import (
	"strings"

	"github.com/jinzhu/inflection"

	amsstrings "github.com/rails-api/active-model-serializers-sub000/internal/util/strings"
	"github.com/rails-api/active-model-serializers-sub000/pkg/config"
	"github.com/rails-api/active-model-serializers-sub000/pkg/serializer"
)

func pluralize(s string) string {
	return inflection.Plural(s)
}

func singularize(s string) string {
	return inflection.Singular(s)
}

// underscoreType converts a model type name to a slash separated snake case path:
// "Api::BlogPost" and "api.BlogPost" become "api/blog_post".
func underscoreType(name string) string {
	name = strings.ReplaceAll(name, "::", ".")
	segments := strings.Split(name, ".")
	for i, seg := range segments {
		segments[i] = amsstrings.ToSnakeCase(seg)
	}
	return strings.Join(segments, "/")
}

// resourceType returns the JSON:API type of s: the declared type override, or the inflected
// model name with namespaces joined by the configured separator. The key transform is
// applied to the result.
func (rc *renderContext) resourceType(s *serializer.Serializer) string {
	if override := s.Descriptor().TypeOverride(); override != "" {
		return rc.transform(override)
	}

	raw := underscoreType(s.TypeName())
	if rc.config.JSONAPI.ResourceType == config.ResourceTypeSingular {
		raw = singularize(raw)
	} else {
		raw = pluralize(raw)
	}
	raw = strings.ReplaceAll(raw, "/", rc.config.JSONAPI.NamespaceSeparator)
	return rc.transform(raw)
}
