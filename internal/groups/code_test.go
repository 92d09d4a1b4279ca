package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeAlphabet(t *testing.T) {
	code := RandomCode(6)
	assert.Regexp(t, `^[A-HJ-NP-Z2-9]{6}$`, code)
}

func TestAllocateCodeFallsBackToLongerCode(t *testing.T) {
	policy := CodePolicy{Length: 6, Retries: 5, FallbackLength: 10}
	checks := 0
	exists := func(context.Context, string) (bool, error) {
		checks++
		return true, nil
	}

	code, err := allocateCode(context.Background(), policy, RandomCode, exists)
	require.NoError(t, err)
	assert.Len(t, code, 10)
	assert.Equal(t, 5, checks)
}

func TestAllocateCodeReturnsFirstFreeCode(t *testing.T) {
	policy := CodePolicy{Length: 6, Retries: 5, FallbackLength: 10}
	seq := []string{"AAAAAA", "BBBBBB"}
	gen := func(int) string {
		next := seq[0]
		seq = seq[1:]
		return next
	}
	exists := func(_ context.Context, code string) (bool, error) {
		return code == "AAAAAA", nil
	}

	code, err := allocateCode(context.Background(), policy, gen, exists)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", code)
}

func TestAllocateCodeSurfacesStoreError(t *testing.T) {
	boom := errors.New("db down")
	_, err := allocateCode(context.Background(), CodePolicy{}.withDefaults(), RandomCode, func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCodePolicyDefaults(t *testing.T) {
	p := CodePolicy{}.withDefaults()
	assert.Equal(t, 6, p.Length)
	assert.Equal(t, 5, p.Retries)
	assert.Equal(t, 10, p.FallbackLength)
}
