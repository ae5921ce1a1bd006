package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParser_ReadFromAndDecode_Basic(t *testing.T) {
	p := New()
	require.NoError(t, p.ReadFrom(strings.NewReader(`{"name": "test", "value": 42}`)))

	var out testData
	require.NoError(t, p.Decode(&out))
	assert.Equal(t, testData{Name: "test", Value: 42}, out)
}

func TestParser_Bytes_ReturnsAccumulatedBody(t *testing.T) {
	p := New()
	body := `{"name": "test", "value": 42}`
	require.NoError(t, p.ReadFrom(strings.NewReader(body)))
	assert.Equal(t, body, string(p.Bytes()))
}

func TestParser_RejectsOversizedPayload(t *testing.T) {
	p := WithMaxSize(10)
	err := p.ReadFrom(strings.NewReader("this payload is definitely over ten bytes"))
	require.Error(t, err)
	var sizeErr *SizeExceededError
	assert.ErrorAs(t, err, &sizeErr)
}

func TestParser_RejectsEmptyPayload(t *testing.T) {
	p := New()
	require.NoError(t, p.ReadFrom(strings.NewReader("")))

	var out testData
	err := p.Decode(&out)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestParser_IsNotReentrant(t *testing.T) {
	p := New()
	require.NoError(t, p.ReadFrom(strings.NewReader(`{"name":"a","value":1}`)))

	var out testData
	require.NoError(t, p.Decode(&out))

	err := p.Decode(&out)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestValidateJSONStructure_ValidNested(t *testing.T) {
	reason := validateJSONStructure([]byte(`{"name": "test", "nested": {"value": 42}}`))
	assert.Empty(t, reason)
}

func TestValidateJSONStructure_UnclosedBrace(t *testing.T) {
	reason := validateJSONStructure([]byte(`{"name": "test", "nested": {"value": 42}`))
	assert.Contains(t, reason, "Unmatched braces")
}

func TestValidateJSONStructure_UnmatchedClosingBracket(t *testing.T) {
	reason := validateJSONStructure([]byte(`{"a": [1, 2]]}`))
	assert.Equal(t, "Unmatched closing brackets detected", reason)
}

func TestValidateJSONStructure_UnterminatedString(t *testing.T) {
	reason := validateJSONStructure([]byte(`{"a": "unterminated`))
	assert.Equal(t, "Unterminated string detected", reason)
}

func TestValidateJSONStructure_EscapedQuoteDoesNotToggleString(t *testing.T) {
	reason := validateJSONStructure([]byte(`{"a": "has \" escaped quote"}`))
	assert.Empty(t, reason)
}

func TestMaxSizeFromContentLength_AppliesTenPercentSlack(t *testing.T) {
	assert.Equal(t, int64(1100), MaxSizeFromContentLength(1000, 1_000_000))
}

func TestMaxSizeFromContentLength_CapsAtConfiguredCeiling(t *testing.T) {
	assert.Equal(t, int64(500), MaxSizeFromContentLength(1_000_000, 500))
}

func TestMaxSizeFromContentLength_FallsBackToCapWhenUnknown(t *testing.T) {
	assert.Equal(t, int64(500), MaxSizeFromContentLength(0, 500))
}
