package adapter

import (
	"testing"

	"github.com/DataDog/jsonapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorObjects(t *testing.T) {
	errs := ErrorObjects(map[string][]string{
		"title": {"can't be blank", "is too short"},
		"base":  {"is locked"},
		"a/b~c": {"odd name"},
	})
	require.Len(t, errs, 4)

	var pointers, details []string
	for _, e := range errs {
		pointers = append(pointers, e.Source.Pointer)
		details = append(details, e.Detail)
		assert.Equal(t, 422, *e.Status)
	}
	assert.Equal(t, []string{"/data/attributes/a~1b~0c", "/data", "/data/attributes/title", "/data/attributes/title"}, pointers)
	assert.Equal(t, []string{"odd name", "is locked", "can't be blank", "is too short"}, details)
}

func TestErrorDocument(t *testing.T) {
	doc := ErrorDocument(nil)
	assert.Equal(t, map[string]any{"errors": []*jsonapi.Error{}}, doc)

	doc = ErrorDocument(map[string][]string{"title": {"can't be blank"}})
	assert.Len(t, doc["errors"], 1)
}
