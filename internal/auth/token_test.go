package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBearer_AcceptsValidToken(t *testing.T) {
	secret, ok := ParseBearer("Bearer hea_0123456789abcdef0123456789abcdef")
	assert.True(t, ok)
	assert.Equal(t, "hea_0123456789abcdef0123456789abcdef", secret)
}

func TestParseBearer_RejectsMissingPrefix(t *testing.T) {
	_, ok := ParseBearer("hea_0123456789abcdef0123456789abcdef")
	assert.False(t, ok)
}

func TestParseBearer_RejectsWrongLength(t *testing.T) {
	_, ok := ParseBearer("Bearer hea_short")
	assert.False(t, ok)
}

func TestParseBearer_RejectsAbsentHeader(t *testing.T) {
	_, ok := ParseBearer("")
	assert.False(t, ok)
}

func TestLookupPrefix_TakesFirstEightChars(t *testing.T) {
	assert.Equal(t, "01234567", LookupPrefix("hea_0123456789abcdef0123456789abcdef"))
}
