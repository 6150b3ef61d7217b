package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreSlicesEqual(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{nil, nil, true},
		{nil, []string{}, true},
		{[]string{"ADMIN"}, []string{"ADMIN"}, true},
		{[]string{"ADMIN", "AUDITOR"}, []string{"AUDITOR", "ADMIN"}, false},
		{[]string{"ADMIN"}, []string{"ADMIN", "AUDITOR"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AreSlicesEqual(tt.a, tt.b), "%v vs %v", tt.a, tt.b)
	}
}

func TestSetLogLevel(t *testing.T) {
	defer Log.SetLevel(logrus.InfoLevel)

	require.NoError(t, SetLogLevel("DEBUG"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	require.NoError(t, SetLogLevel("warn"))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
	require.NoError(t, SetLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
	assert.Error(t, SetLogLevel("trace"))
}

func TestLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tui.log")
	c, err := LogToFile(path)
	require.NoError(t, err)
	Log.Warn("token file changed")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "token file changed")
	assert.Equal(t, os.Stderr, Log.Out)
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	l, err := NewFileLock(path)
	require.NoError(t, err)

	require.NoError(t, l.Lock())
	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err)
	require.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock(), "unlocking twice is harmless")
}
