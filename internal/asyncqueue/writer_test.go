package asyncqueue

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/pool"
)

type conn uint64

func (c conn) Handle() uint64 { return uint64(c) }

// scripted returns a WriteFunc that pops outcomes from script; an empty
// script means "would block".
type scripted struct {
	script []error
	sent   []string
}

func (s *scripted) write(_ conn, _ *net.UDPAddr, msg api.Message, res *api.WriteResult) (int64, error) {
	if len(s.script) == 0 {
		return 0, nil
	}
	err := s.script[0]
	s.script = s.script[1:]
	if err != nil {
		return 0, err
	}
	b := msg.Buffer()
	n := int64(b.Remaining())
	s.sent = append(s.sent, string(b.Bytes()))
	b.SetPosition(b.Limit())
	res.Message = msg
	res.WrittenSize += n
	return n, nil
}

func msg(s string) api.Message { return api.BufferMessage(pool.WrapString(s)) }

func TestWriter_DirectWrite(t *testing.T) {
	s := &scripted{script: []error{nil}}
	w := NewWriter[conn](s.write)

	var got api.WriteResult
	w.Write(conn(1), nil, msg("a"), func(r api.WriteResult, err error) {
		require.NoError(t, err)
		got = r
	})
	assert.Equal(t, int64(1), got.WrittenSize)
	assert.Equal(t, []string{"a"}, s.sent)
	assert.Zero(t, w.Pending(conn(1)))
}

func TestWriter_QueuesWhenBlockedAndFlushesInOrder(t *testing.T) {
	s := &scripted{}
	w := NewWriter[conn](s.write)

	var done []string
	for _, p := range []string{"a", "b", "c"} {
		p := p
		w.Write(conn(1), nil, msg(p), func(_ api.WriteResult, err error) {
			require.NoError(t, err)
			done = append(done, p)
		})
	}
	assert.Equal(t, 3, w.Pending(conn(1)))
	assert.Empty(t, done)

	s.script = []error{nil, nil, nil}
	w.Flush(conn(1))
	assert.Equal(t, []string{"a", "b", "c"}, s.sent)
	assert.Equal(t, []string{"a", "b", "c"}, done)
	assert.Zero(t, w.Pending(conn(1)))
}

func TestWriter_ErrorFailsOnlyThatRecord(t *testing.T) {
	boom := errors.New("boom")
	s := &scripted{}
	w := NewWriter[conn](s.write)

	var errs []error
	w.Write(conn(1), nil, msg("a"), func(_ api.WriteResult, err error) { errs = append(errs, err) })
	w.Write(conn(1), nil, msg("b"), func(_ api.WriteResult, err error) { errs = append(errs, err) })

	s.script = []error{boom, nil}
	w.Flush(conn(1))
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], boom)
	assert.NoError(t, errs[1])
}

func TestWriter_OnCloseFailsPending(t *testing.T) {
	s := &scripted{}
	w := NewWriter[conn](s.write)

	var errs []error
	for i := 0; i < 2; i++ {
		w.Write(conn(7), nil, msg("x"), func(_ api.WriteResult, err error) { errs = append(errs, err) })
	}
	w.OnClose(conn(7))

	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, api.ErrConnectionClosed)
	}
	assert.Zero(t, w.Pending(conn(7)))
}

func TestReader_OnCloseNotifies(t *testing.T) {
	r := NewReader[conn]()
	var closed []uint64
	r.AddCloseListener(func(c conn) { closed = append(closed, c.Handle()) })
	r.OnClose(conn(3))
	assert.Equal(t, []uint64{3}, closed)
}
