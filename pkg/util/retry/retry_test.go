package retry

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

func TestDoSuccess(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	}, Sleep(time.Millisecond))
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDoAttempts(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		return errors.New("always")
	}, Attempts(3), Sleep(time.Millisecond))
	assert.EqualError(t, err, "always")
	assert.Equal(t, 3, n)
}

func TestDoUnrecoverable(t *testing.T) {
	n := 0
	cause := errors.New("fatal")
	err := Do(context.Background(), func() error {
		n++
		return Unrecoverable(cause)
	}, Sleep(time.Millisecond))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsRecoverable(err))
	assert.Equal(t, 1, n)
}

func TestDoRetryErr(t *testing.T) {
	n := 0
	err := Do(context.Background(), func() error {
		n++
		if n == 1 {
			return merr.WrapErrMetadataCache("/tmp/x", errors.New("busy"))
		}
		return merr.WrapErrConfigInvalid("k", "v")
	}, RetryErr(merr.IsRetryableErr), Sleep(time.Millisecond))
	assert.ErrorIs(t, err, merr.ErrConfigInvalid)
	assert.Equal(t, 2, n)
}

func TestDoContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := Do(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = Do(ctx, func() error { return errors.New("slow") }, Attempts(0), Sleep(time.Second))
	assert.EqualError(t, err, "slow")
}

func TestOptions(t *testing.T) {
	c := newDefaultConfig()
	Sleep(5 * time.Second)(c)
	assert.Equal(t, 10*time.Second, c.maxSleepTime)
	MaxSleepTime(time.Second)(c)
	assert.Equal(t, 10*time.Second, c.maxSleepTime)
	Attempts(2)(c)
	assert.EqualValues(t, 2, c.attempts)
}
