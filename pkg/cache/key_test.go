package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandKey(t *testing.T) {
	assert.Equal(t, "post/42-1/json/abc", ExpandKey("post/42-1", "json", "abc"))
	assert.Equal(t, "post/42-1/json", ExpandKey("post/42-1", "json", ""))
}

func TestDigest(t *testing.T) {
	assert.Equal(t, Digest("a", "b"), Digest("a", "b"))
	assert.NotEqual(t, Digest("ab", "c"), Digest("a", "bc"))
	assert.NotEmpty(t, Digest())
}
