package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	log, err := New(true, "")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))

	dev, err := New(false, "warn")
	require.NoError(t, err)
	assert.False(t, dev.Core().Enabled(zap.InfoLevel))

	_, err = New(false, "loud")
	assert.Error(t, err)
}
