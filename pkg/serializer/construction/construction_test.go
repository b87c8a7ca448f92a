package construction_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/construction"
)

type settings struct {
	Retries int
	Mode    string
}

func (s *settings) InitDefaults() {
	s.Retries = 3
	s.Mode = "auto"
}

func TestUnserialize(t *testing.T) {
	v, err := construction.Unserialize{}.Construct(reflect.TypeOf(settings{}), nil)
	require.NoError(t, err)
	assert.True(t, v.CanSet())
	assert.Equal(t, settings{}, v.Interface())
}

func TestWithInitializer(t *testing.T) {
	c := construction.WithInitializer(construction.Unserialize{})
	v, err := c.Construct(reflect.TypeOf(settings{}), map[string]any{"mode": "manual"})
	require.NoError(t, err)
	assert.Equal(t, settings{Retries: 3, Mode: "auto"}, v.Interface())

	type plain struct{ A int }
	v, err = c.Construct(reflect.TypeOf(plain{}), nil)
	require.NoError(t, err)
	assert.Equal(t, plain{}, v.Interface())
}
