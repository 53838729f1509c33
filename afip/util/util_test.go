package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugEnabled_False(t *testing.T) {
	assert.False(t, DebugEnabled())
}

func TestDebugEnabled_True(t *testing.T) {
	t.Setenv("AFIP_DEBUG", "true")
	assert.True(t, DebugEnabled())
}

func TestDebugEnabled_Garbage(t *testing.T) {
	t.Setenv("AFIP_DEBUG", "yes please")
	assert.False(t, DebugEnabled())
}

func TestHttpTraceEnabled(t *testing.T) {
	t.Setenv("AFIP_HTTP_TRACE", "1")
	assert.True(t, HttpTraceEnabled())
}
