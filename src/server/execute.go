package server

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/danmuck/nftp/src/protocol"
	"github.com/danmuck/nftp/src/rootfs"
)

// result describes what an instruction put on the wire. Once headerSent is
// true the request can only finish or abort; no error frame may follow.
type result struct {
	headerSent bool
	payload    int64
}

// execute runs in against root and writes the response to w.
func execute(ctx context.Context, root *rootfs.Root, w io.Writer, v protocol.Version, in protocol.Instruction) (result, error) {
	if err := ctx.Err(); err != nil {
		return result{}, fmt.Errorf("%w: %v", protocol.ErrIOFailure, err)
	}
	switch in.Op {
	case protocol.OpGet:
		return executeGet(root, w, v, in.Paths)
	case protocol.OpList:
		return executeList(root, w, v)
	default:
		return result{}, fmt.Errorf("%w: %s", protocol.ErrUnknownInstruction, in.Op)
	}
}

// GET: [14B header: OK + size] then exactly size bytes streamed from disk.
func executeGet(root *rootfs.Root, w io.Writer, v protocol.Version, paths []string) (result, error) {
	if len(paths) != 1 {
		return result{}, fmt.Errorf("%w: GET takes exactly 1 path, got %d", protocol.ErrInvalidArgument, len(paths))
	}

	f, size, err := root.Open(paths[0])
	if err != nil {
		return result{}, err
	}
	defer f.Close()

	var res result
	hn, err := protocol.NewPayloadHeader(v, uint64(size)).WriteTo(w)
	if err != nil {
		// bytes of a partial header cannot be taken back
		res.headerSent = hn > 0
		return res, fmt.Errorf("%w: write header: %v", protocol.ErrIOFailure, err)
	}
	res.headerSent = true

	n, err := io.CopyN(w, f, size)
	res.payload = n
	if err != nil {
		return res, fmt.Errorf("%w: stream %q: %d/%d bytes: %v", protocol.ErrIOFailure, paths[0], n, size, err)
	}
	return res, nil
}

// LIST: [14B header: OK + len] then the serialized tree, in one write.
func executeList(root *rootfs.Root, w io.Writer, v protocol.Version) (result, error) {
	tree, err := root.Tree()
	if err != nil {
		return result{}, fmt.Errorf("%w: %v", protocol.ErrIOFailure, err)
	}

	hdr := protocol.NewPayloadHeader(v, uint64(len(tree))).Bytes()
	bufs := net.Buffers{hdr, []byte(tree)}
	n, err := bufs.WriteTo(w)
	res := result{headerSent: n > 0 || err == nil}
	if p := n - int64(len(hdr)); p > 0 {
		res.payload = p
	}
	if err != nil {
		return res, fmt.Errorf("%w: write list: %v", protocol.ErrIOFailure, err)
	}
	return res, nil
}
