package buffer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_EnqueuePeekOrder(t *testing.T) {
	r := NewRingBuffer()
	ctx := context.Background()

	seq1, err := r.Enqueue(ctx, `{"n":1}`, 100)
	require.NoError(t, err)
	seq2, err := r.Enqueue(ctx, `{"n":2}`, 200)
	require.NoError(t, err)
	assert.Less(t, seq1, seq2)

	entries, err := r.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, `{"n":1}`, entries[0].Data)
	assert.Equal(t, `{"n":2}`, entries[1].Data)
}

func TestRingBuffer_MarkSentExcludesFromPeek(t *testing.T) {
	r := NewRingBuffer()
	ctx := context.Background()

	seq, err := r.Enqueue(ctx, `{"n":1}`, 100)
	require.NoError(t, err)
	require.NoError(t, r.MarkSent(ctx, seq))

	entries, err := r.Peek(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRingBuffer_MarkSentUnknownSeqIsNotAnError(t *testing.T) {
	r := NewRingBuffer()
	assert.NoError(t, r.MarkSent(context.Background(), 999))
}

func TestRingBuffer_TrimsOnOverflow(t *testing.T) {
	r := NewRingBuffer()
	ctx := context.Background()

	for i := 0; i < ringCapacity+10; i++ {
		_, err := r.Enqueue(ctx, "x", int64(i))
		require.NoError(t, err)
	}

	r.mu.Lock()
	length := len(r.entries)
	oldest := r.entries[0].Seq
	r.mu.Unlock()

	assert.Less(t, length, ringCapacity+10, "overflow must have triggered at least one trim")
	assert.Greater(t, oldest, int64(1), "the oldest surviving entry must not be the very first enqueued")
}

func TestRingBuffer_GCDropsOnlySentEntries(t *testing.T) {
	r := NewRingBuffer()
	ctx := context.Background()

	seq1, _ := r.Enqueue(ctx, "a", 1)
	_, _ = r.Enqueue(ctx, "b", 2)
	require.NoError(t, r.MarkSent(ctx, seq1))

	require.NoError(t, r.GC(ctx, 0))

	entries, err := r.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Data)
}

func TestRingBuffer_Close(t *testing.T) {
	r := NewRingBuffer()
	assert.NoError(t, r.Close())
}
