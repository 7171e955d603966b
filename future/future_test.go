package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/api"
)

func TestFuture_CompleteOnce(t *testing.T) {
	f := New[int]()
	require.True(t, f.Complete(1))
	assert.False(t, f.Complete(2))
	assert.False(t, f.Fail(errors.New("late")))

	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_HandlersRunOnResolve(t *testing.T) {
	f := New[string]()
	var got []string
	f.OnComplete(func(v string, err error) { got = append(got, "first:"+v) })
	f.OnComplete(func(v string, err error) { got = append(got, "second:"+v) })
	f.Complete("ok")
	f.OnComplete(func(v string, err error) { got = append(got, "late:"+v) })

	assert.Equal(t, []string{"first:ok", "second:ok", "late:ok"}, got)
}

func TestFuture_GetTimeout(t *testing.T) {
	f := New[int]()
	_, err := f.GetTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, api.ErrOperationTimeout)
	assert.False(t, f.IsDone())
}

func TestFuture_FailPropagates(t *testing.T) {
	cause := errors.New("boom")
	f := Failed[int](cause)
	_, err := f.GetTimeout(time.Second)
	assert.ErrorIs(t, err, cause)
}

func TestFuture_HandlerAdapter(t *testing.T) {
	f := New[int]()
	h := f.Handler()
	go h(7, nil)
	v, err := f.GetTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
