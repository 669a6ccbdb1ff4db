package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("password")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	assert.NotEqual(t, "password", h)

	assert.True(t, CheckPassword(h, "password"))
	assert.False(t, CheckPassword(h, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "password"))
}
