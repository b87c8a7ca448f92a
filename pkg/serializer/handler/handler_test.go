package handler_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/handler"
)

type money int64

func TestRegistryFormatPrecedence(t *testing.T) {
	r := handler.NewRegistry()
	typ := reflect.TypeOf(money(0))

	r.RegisterSerializer(typ, handler.AnyFormat, func(v reflect.Value, _ string) (any, error) {
		return "any", nil
	})
	r.RegisterSerializer(typ, "xml", func(v reflect.Value, _ string) (any, error) {
		return "xml", nil
	})

	fn, ok := r.Serializer(typ, "xml")
	require.True(t, ok)
	out, err := fn(reflect.ValueOf(money(1)), "xml")
	require.NoError(t, err)
	assert.Equal(t, "xml", out)

	fn, ok = r.Serializer(typ, "json")
	require.True(t, ok)
	out, _ = fn(reflect.ValueOf(money(1)), "json")
	assert.Equal(t, "any", out)

	_, ok = r.Deserializer(typ, "json")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestDefaultTimeHandlers(t *testing.T) {
	r := handler.NewRegistry()
	handler.RegisterDefaults(r)

	ts := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	ser, ok := r.Serializer(reflect.TypeOf(ts), "json")
	require.True(t, ok)
	data, err := ser(reflect.ValueOf(ts), "json")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:30:00.0000005Z", data)

	de, ok := r.Deserializer(reflect.TypeOf(ts), "json")
	require.True(t, ok)
	var got time.Time
	require.NoError(t, de(data, reflect.ValueOf(&got).Elem(), "json"))
	assert.True(t, ts.Equal(got))

	assert.Error(t, de(42, reflect.ValueOf(&got).Elem(), "json"))
	assert.Error(t, de("yesterday", reflect.ValueOf(&got).Elem(), "json"))
}

func TestDefaultDurationHandlers(t *testing.T) {
	r := handler.NewRegistry()
	handler.RegisterDefaults(r)

	typ := reflect.TypeOf(time.Duration(0))
	ser, _ := r.Serializer(typ, "yml")
	data, err := ser(reflect.ValueOf(90*time.Second), "yml")
	require.NoError(t, err)
	assert.Equal(t, "1m30s", data)

	de, _ := r.Deserializer(typ, "yml")
	var d time.Duration
	require.NoError(t, de("1m30s", reflect.ValueOf(&d).Elem(), "yml"))
	assert.Equal(t, 90*time.Second, d)

	require.NoError(t, de(float64(1500), reflect.ValueOf(&d).Elem(), "json"))
	assert.Equal(t, 1500*time.Nanosecond, d)

	assert.Error(t, de(true, reflect.ValueOf(&d).Elem(), "json"))
}

func TestRegistryClone(t *testing.T) {
	r := handler.NewRegistry()
	typ := reflect.TypeOf(money(0))
	r.RegisterSerializer(typ, handler.AnyFormat, func(reflect.Value, string) (any, error) { return "any", nil })

	c := r.Clone()
	handler.RegisterDefaults(c)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 5, c.Len())

	_, ok := c.Serializer(typ, "json")
	assert.True(t, ok)
}
