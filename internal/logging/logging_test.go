package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log, err = New("debug", &buf)
	require.NoError(t, err)
	log.WithField("trail", 2).Debug("tourist entered")
	assert.Contains(t, buf.String(), "tourist entered")
	assert.Contains(t, buf.String(), "trail=2")

	_, err = New("loud", &buf)
	assert.Error(t, err)
}
