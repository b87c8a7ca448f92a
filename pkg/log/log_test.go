package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerWithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Level:  "info",
		Format: "json",
		File: FileLogConfig{
			RootPath: dir,
			Filename: "serializer.log",
		},
	}
	lg, props, err := InitLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, props)

	lg.Info("builder constructed", FieldModule("serializer"), FieldFormat("json"))
	lg.Debug("filtered")
	require.NoError(t, lg.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "serializer.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"serializer"`)
	assert.Contains(t, string(data), `"format":"json"`)
	assert.NotContains(t, string(data), "filtered")
}

func TestInitLoggerRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "logs"), 0o755))
	_, _, err := InitLogger(&Config{File: FileLogConfig{RootPath: dir, Filename: "logs"}})
	assert.Error(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	_, _, err := InitLoggerWithWriteSyncer(&Config{Level: "loud"}, zapcore.AddSync(os.Stderr))
	assert.Error(t, err)
}

func TestReplaceGlobalsAndLevel(t *testing.T) {
	origL, origP := L(), _globalP.Load().(*ZapProperties)
	defer ReplaceGlobals(origL, origP)

	var buf bytes.Buffer
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "debug", DisableTimestamp: true}, zapcore.AddSync(&buf))
	require.NoError(t, err)
	ReplaceGlobals(lg, props)

	assert.Equal(t, zapcore.DebugLevel, GetLevel())
	Debug("metadata compiled", FieldType("model.User"))
	SetLevel(zapcore.WarnLevel)
	assert.Equal(t, zapcore.WarnLevel, GetLevel())
	assert.False(t, With(FieldComponent("provider")).DebugEnabled())
	Info("dropped")
	Warn("warn through global", zap.String("k", "v"))

	out := buf.String()
	assert.Contains(t, out, "metadata compiled")
	assert.Contains(t, out, "warn through global")
	assert.NotContains(t, out, "dropped")
}

func TestBinder(t *testing.T) {
	var b Binder
	assert.NotNil(t, b.Logger())

	custom := &MLogger{Logger: zap.NewNop()}
	b.SetLogger(custom)
	assert.Same(t, custom, b.Logger())

	named := custom.Named("visitor").With(FieldType("model.User"))
	assert.NotNil(t, named.Logger)
}
