package rawstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_IsDeterministic(t *testing.T) {
	body := []byte(`{"metrics":[]}`)
	assert.Equal(t, ContentHash(body), ContentHash(body))
}

func TestContentHash_DiffersOnDifferentBody(t *testing.T) {
	a := ContentHash([]byte(`{"a":1}`))
	b := ContentHash([]byte(`{"a":2}`))
	assert.NotEqual(t, a, b)
}

func TestContentHash_Is64CharHex(t *testing.T) {
	hash := ContentHash([]byte("payload"))
	assert.Len(t, hash, 64)
}
