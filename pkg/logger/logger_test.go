package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithDefaults(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Info("hello", "key", "value")
	l.Debug("should be filtered at info level")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{
			name:    "file enabled without path",
			cfg:     &Config{EnableConsole: true, EnableFile: true},
			wantErr: ErrInvalidOutputPath,
		},
		{
			name:    "no output enabled",
			cfg:     &Config{},
			wantErr: ErrNoOutputEnabled,
		},
		{
			name: "console only",
			cfg:  &Config{EnableConsole: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	l, err := New(&Config{
		Level:      DebugLevel,
		Format:     JSONFormat,
		EnableFile: true,
		OutputPath: path,
	})
	require.NoError(t, err)

	l.Info("written to file", "n", 1)
	require.NoError(t, l.Sync())

	assert.FileExists(t, path)
}

func TestNamedAndWithFields(t *testing.T) {
	l, err := New(&Config{EnableConsole: true, Level: DebugLevel})
	require.NoError(t, err)

	named := l.Named("channel")
	require.NotNil(t, named)
	named.Debug("from named logger")

	derived := l.WithFields("service", "gateway")
	require.NotNil(t, derived)
	derived.Info("with fields")

	// 奇数个 key-value 被忽略，不应 panic
	l.Info("odd kv", "only-a-key")
}

func TestDefaultLazyInit(t *testing.T) {
	l := Default()
	require.NotNil(t, l)
	assert.Same(t, l, Default())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, parseLevel(DebugLevel).String(), "debug")
	assert.Equal(t, parseLevel(ErrorLevel).String(), "error")
	assert.Equal(t, parseLevel(Level("bogus")).String(), "info")
}
