package server

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/danmuck/nftp/src/protocol"
	"github.com/danmuck/nftp/src/rootfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limitWriter accepts limit bytes and then fails every write.
type limitWriter struct {
	limit int
	out   bytes.Buffer
}

func (w *limitWriter) Write(p []byte) (int, error) {
	room := w.limit - w.out.Len()
	if room <= 0 {
		return 0, errors.New("limitWriter: closed")
	}
	if len(p) > room {
		w.out.Write(p[:room])
		return room, errors.New("limitWriter: closed")
	}
	return w.out.Write(p)
}

func testRoot(t *testing.T) *rootfs.Root {
	t.Helper()
	cfg := testConfig(t)
	writeFile(t, cfg.Root, "a.txt", []byte("abc"))
	writeFile(t, cfg.Root, "big.bin", bytes.Repeat([]byte("z"), 4096))
	root, err := rootfs.New(cfg.Root, true)
	require.NoError(t, err)
	return root
}

func TestExecuteGet(t *testing.T) {
	root := testRoot(t)
	var out bytes.Buffer

	res, err := execute(context.Background(), root, &out, protocol.V1_0, protocol.Instruction{Op: protocol.OpGet, Paths: []string{"a.txt"}})
	require.NoError(t, err)
	assert.True(t, res.headerSent)
	assert.Equal(t, int64(3), res.payload)
	assert.Equal(t, "nFTP\x10\x01\x00\x00\x00\x00\x00\x00\x00\x03abc", out.String())
}

func TestExecuteGetFailureBeforeHeader(t *testing.T) {
	root := testRoot(t)

	tests := []struct {
		name  string
		paths []string
		want  error
	}{
		{name: "no paths", paths: nil, want: protocol.ErrInvalidArgument},
		{name: "two paths", paths: []string{"a.txt", "a.txt"}, want: protocol.ErrInvalidArgument},
		{name: "missing", paths: []string{"nope"}, want: protocol.ErrNotFound},
		{name: "escape", paths: []string{"../../etc/passwd"}, want: protocol.ErrOutsideRoot},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			res, err := execute(context.Background(), root, &out, protocol.V1_0, protocol.Instruction{Op: protocol.OpGet, Paths: tc.paths})
			require.ErrorIs(t, err, tc.want)
			assert.False(t, res.headerSent)
			assert.Zero(t, out.Len())
		})
	}
}

func TestExecuteGetAbortsAfterHeader(t *testing.T) {
	root := testRoot(t)
	w := &limitWriter{limit: protocol.LongHeaderLen + 100}

	res, err := execute(context.Background(), root, w, protocol.V1_0, protocol.Instruction{Op: protocol.OpGet, Paths: []string{"big.bin"}})
	require.ErrorIs(t, err, protocol.ErrIOFailure)
	assert.True(t, res.headerSent, "success header already written")
	assert.Less(t, res.payload, int64(4096))
}

func TestExecuteGetPartialHeader(t *testing.T) {
	root := testRoot(t)
	w := &limitWriter{limit: 3}

	res, err := execute(context.Background(), root, w, protocol.V1_0, protocol.Instruction{Op: protocol.OpGet, Paths: []string{"a.txt"}})
	require.ErrorIs(t, err, protocol.ErrIOFailure)
	assert.True(t, res.headerSent)
	assert.Zero(t, res.payload)
}

func TestExecuteList(t *testing.T) {
	root := testRoot(t)
	var out bytes.Buffer

	res, err := execute(context.Background(), root, &out, protocol.V1_0, protocol.Instruction{Op: protocol.OpList})
	require.NoError(t, err)
	body := "served{a.txt,big.bin,}"
	assert.Equal(t, int64(len(body)), res.payload)

	hdr, err := protocol.ReadResponseHeader(&out)
	require.NoError(t, err)
	size, ok := hdr.PayloadLen()
	require.True(t, ok)
	assert.Equal(t, uint64(len(body)), size)
	assert.Equal(t, body, out.String())
}

func TestExecuteRejectsCancelledAndUnknown(t *testing.T) {
	root := testRoot(t)
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := execute(ctx, root, &out, protocol.V1_0, protocol.Instruction{Op: protocol.OpList})
	assert.ErrorIs(t, err, protocol.ErrIOFailure)

	_, err = execute(context.Background(), root, &out, protocol.V1_0, protocol.Instruction{Op: protocol.OpInsert})
	assert.ErrorIs(t, err, protocol.ErrUnknownInstruction)
	assert.Zero(t, out.Len())
}
