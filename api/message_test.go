package api_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/pool"
)

func TestMessage_Variants(t *testing.T) {
	var zero api.Message
	assert.Equal(t, api.MessageInvalid, zero.Kind())
	assert.Zero(t, zero.Remaining())

	buf := pool.WrapString("payload")
	m := api.BufferMessage(buf)
	assert.Equal(t, api.MessageBuffer, m.Kind())
	assert.Same(t, buf, m.Buffer())
	assert.Nil(t, m.File())
	assert.Equal(t, int64(7), m.Remaining())

	assert.Equal(t, api.MessageInvalid, api.BufferMessage(nil).Kind())
	assert.Equal(t, api.MessageInvalid, api.FileMessage(nil).Kind())
}

func TestFileChunk(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "chunk"))
	require.NoError(t, err)
	defer f.Close()

	fc, err := api.NewFileChunk(f, 4, 10)
	require.NoError(t, err)
	m := api.FileMessage(fc)
	assert.Equal(t, "file", m.Kind().String())
	assert.Equal(t, int64(10), m.Remaining())

	_, err = api.NewFileChunk(f, -1, 10)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = api.NewFileChunk(nil, 0, 0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestError_WrapAndContext(t *testing.T) {
	cause := errors.New("address in use")
	err := api.NewError(api.ErrCodeBind, "bind failed").
		WithContext("address", "127.0.0.1:53").
		Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bind failed")
	var apiErr *api.Error
	require.ErrorAs(t, error(err), &apiErr)
	assert.Equal(t, api.ErrCodeBind, apiErr.Code)
	assert.Equal(t, "127.0.0.1:53", apiErr.Context["address"])
}

func TestResults_Reset(t *testing.T) {
	r := api.ReadResult{ReadSize: 3}
	r.Reset()
	assert.Equal(t, api.ReadResult{}, r)

	w := api.WriteResult{WrittenSize: 9}
	w.Reset()
	assert.Equal(t, api.WriteResult{}, w)
}
