package application

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serializer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunWithoutConfig(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	app := New()
	require.NoError(t, app.Run(""))
	assert.Empty(t, app.ConfigPath())
	assert.NotNil(t, app.Factory())

	var out bytes.Buffer
	require.NoError(t, app.Convert(strings.NewReader(`{"name":"Ann","tags":["a"]}`), &out, "json", "yml"))
	assert.Equal(t, "name: Ann\ntags:\n  - a\n", out.String())
}

func TestRunConfigPriority(t *testing.T) {
	envPath := writeConfig(t, "serializer:\n  visitors: [json-pretty]\n")
	flagPath := writeConfig(t, "serializer:\n  visitors: [protobuf]\nlog:\n  level: warn\n")
	t.Setenv(ConfigPathEnv, envPath)

	app := New()
	require.NoError(t, app.Run(""))
	assert.Equal(t, envPath, app.ConfigPath())
	assert.Equal(t, []string{"json-pretty"}, app.File().Serializer.Visitors)

	var out bytes.Buffer
	require.NoError(t, app.Convert(strings.NewReader(`{"a":1}`), &out, "json", "json"))
	assert.Equal(t, "{\n  \"a\": 1\n}", out.String())

	app = New()
	require.NoError(t, app.Run(flagPath))
	assert.Equal(t, flagPath, app.ConfigPath())
	assert.Equal(t, "warn", app.File().Log.Level)

	ser, err := app.Factory().Serializer()
	require.NoError(t, err)
	assert.Contains(t, ser.SerializationFormats(), "protobuf")
}

func TestRunErrors(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	err := New().Run(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, merr.ErrConfigLoad)

	err = New().Run(writeConfig(t, "serializer:\n  visitors: [bson]\n"))
	assert.ErrorIs(t, err, merr.ErrConfigInvalid)

	err = New().Run(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorIs(t, err, merr.ErrConfigInvalid)

	assert.Error(t, New().Convert(strings.NewReader("{}"), &bytes.Buffer{}, "json", "yml"))
}

func TestConvertErrors(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	app := New()
	require.NoError(t, app.Run(""))

	err := app.Convert(strings.NewReader("{}"), &bytes.Buffer{}, "bson", "json")
	assert.ErrorIs(t, err, merr.ErrUnsupportedFormat)

	err = app.Convert(strings.NewReader("{"), &bytes.Buffer{}, "json", "yml")
	assert.ErrorIs(t, err, merr.ErrDecodeFailed)
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("GARDEN_TEST_BOOL", " Yes ")
	assert.True(t, getenvBool("GARDEN_TEST_BOOL", false))
	t.Setenv("GARDEN_TEST_BOOL", "maybe")
	assert.True(t, getenvBool("GARDEN_TEST_BOOL", true))
	t.Setenv("GARDEN_TEST_BOOL", "off")
	assert.False(t, getenvBool("GARDEN_TEST_BOOL", true))
}
