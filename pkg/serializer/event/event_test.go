package event_test

import (
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/event"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

type order struct{ ID int }
type invoice struct{ No string }

func TestDispatchOrderAndTypeFilter(t *testing.T) {
	d := event.NewDispatcher()
	var calls []string

	d.Subscribe(event.PostSerialize, func(e *event.Event) error {
		calls = append(calls, "all")
		return nil
	})
	d.SubscribeType(event.PostSerialize, reflect.TypeOf(&order{}), func(e *event.Event) error {
		calls = append(calls, "order")
		e.Data["kind"] = "order"
		return nil
	})

	e := &event.Event{Kind: event.PostSerialize, Type: reflect.TypeOf(order{}), Data: map[string]any{}}
	require.NoError(t, d.Dispatch(e))
	assert.Equal(t, []string{"all", "order"}, calls)
	assert.Equal(t, "order", e.Data["kind"])

	calls = nil
	require.NoError(t, d.Dispatch(&event.Event{Kind: event.PostSerialize, Type: reflect.TypeOf(invoice{})}))
	assert.Equal(t, []string{"all"}, calls)

	assert.True(t, d.HasListeners(event.PostSerialize, reflect.TypeOf(invoice{})))
	assert.False(t, d.HasListeners(event.PreSerialize, reflect.TypeOf(order{})))
}

func TestDispatchAbort(t *testing.T) {
	d := event.NewDispatcher()
	called := false
	d.Subscribe(event.PreDeserialize, func(*event.Event) error { return errors.New("rejected") })
	d.Subscribe(event.PreDeserialize, func(*event.Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(&event.Event{Kind: event.PreDeserialize, Type: reflect.TypeOf(order{})})
	assert.ErrorIs(t, err, merr.ErrListenerAborted)
	assert.Contains(t, err.Error(), "rejected")
	assert.False(t, called)
}

func TestDispatcherClone(t *testing.T) {
	d := event.NewDispatcher()
	d.Subscribe(event.PostSerialize, func(*event.Event) error { return nil })

	c := d.Clone()
	c.Subscribe(event.PreSerialize, func(*event.Event) error { return nil })

	assert.True(t, c.HasListeners(event.PostSerialize, reflect.TypeOf(order{})))
	assert.True(t, c.HasListeners(event.PreSerialize, reflect.TypeOf(order{})))
	assert.False(t, d.HasListeners(event.PreSerialize, reflect.TypeOf(order{})))
}
