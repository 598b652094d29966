package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayclock/bayclock/internal/logger"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := logger.New("debug", format)
		require.NoError(t, err, format)
		assert.NotNil(t, l.Logger)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := logger.New("loud", "json")
	assert.Error(t, err)

	_, err = logger.New("info", "xml")
	assert.Error(t, err)
}
