package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ladvien/self-sensored/config"
)

var testAuthCfg = config.AuthConfig{ArgonTimeCost: 1, ArgonMemoryKiB: 8 * 1024, ArgonThreads: 2}

func TestHashSecret_VerifiesCorrectSecret(t *testing.T) {
	hash, err := HashSecret("hea_0123456789abcdef0123456789abcdef", testAuthCfg)
	require.NoError(t, err)
	assert.True(t, VerifySecret("hea_0123456789abcdef0123456789abcdef", hash))
}

func TestHashSecret_RejectsWrongSecret(t *testing.T) {
	hash, err := HashSecret("hea_0123456789abcdef0123456789abcdef", testAuthCfg)
	require.NoError(t, err)
	assert.False(t, VerifySecret("hea_ffffffffffffffffffffffffffffffff", hash))
}

func TestHashSecret_SaltsDifferently(t *testing.T) {
	a, _ := HashSecret("same-secret", testAuthCfg)
	b, _ := HashSecret("same-secret", testAuthCfg)
	assert.NotEqual(t, a, b)
}

func TestVerifySecret_MalformedHashNeverMatches(t *testing.T) {
	assert.False(t, VerifySecret("anything", "not-a-valid-hash"))
}
