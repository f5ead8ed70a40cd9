package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"n8napp/internal/logging"
)

func TestNew(t *testing.T) {
	l, err := logging.New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = logging.New("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewBadLevel(t *testing.T) {
	_, err := logging.New("loud")
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	assert.Equal(t, "session_id", logging.Session("abc").Key)
	assert.Equal(t, "abc", logging.Session("abc").String)
	assert.Equal(t, "workflow_id", logging.Workflow("7").Key)
}
