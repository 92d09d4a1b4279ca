package instance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrefersEnv(t *testing.T) {
	t.Setenv("FEASTFLOW_INSTANCE_ID", "api-7")
	assert.Equal(t, "api-7", resolve())
}

func TestResolveGeneratesSuffix(t *testing.T) {
	t.Setenv("FEASTFLOW_INSTANCE_ID", "")
	a := resolve()
	b := resolve()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.Contains(a, "-"))
}

func TestGetIDStable(t *testing.T) {
	assert.Equal(t, GetID(), GetID())
}
