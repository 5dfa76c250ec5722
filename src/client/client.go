// Package client speaks nFTP to a server: one connection per request.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/danmuck/nftp/src/protocol"
	"github.com/danmuck/nftp/src/rootfs"
	logs "github.com/danmuck/smplog"
)

var (
	ErrRemote         = errors.New("client: server returned an error response")
	ErrUnexpectedCode = errors.New("client: unexpected response code")
)

type Client struct {
	Addr        string
	DialTimeout time.Duration
}

func New(addr string) *Client {
	return &Client{Addr: addr, DialTimeout: 5 * time.Second}
}

// Get streams the file at path into w and returns the number of bytes copied.
func (c *Client) Get(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := protocol.EncodeGet(path)
	if err != nil {
		return 0, err
	}
	conn, size, err := c.roundTrip(ctx, req)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	n, err := io.CopyN(w, conn, int64(size))
	if err != nil {
		return n, fmt.Errorf("%w: payload %d/%d bytes: %v", protocol.ErrTruncated, n, size, err)
	}
	logs.Debugf("GET %q: %d bytes", path, n)
	return n, nil
}

// List returns the raw bracketed tree of the server root.
func (c *Client) List(ctx context.Context) (string, error) {
	req, err := protocol.EncodeList()
	if err != nil {
		return "", err
	}
	conn, size, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var sb strings.Builder
	if size < 1<<24 {
		sb.Grow(int(size))
	}
	if _, err := io.CopyN(&sb, conn, int64(size)); err != nil {
		return "", fmt.Errorf("%w: list payload: %v", protocol.ErrTruncated, err)
	}
	return sb.String(), nil
}

// Tree is List parsed into nodes.
func (c *Client) Tree(ctx context.Context) (*rootfs.Node, error) {
	raw, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return rootfs.ParseTree(raw)
}

// roundTrip sends req on a fresh connection and reads the response header.
// On success the caller owns conn and must read size payload bytes.
func (c *Client) roundTrip(ctx context.Context, req []byte) (net.Conn, uint64, error) {
	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, 0, fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblock reads when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	hdr, err := c.exchange(conn, req)
	if err != nil {
		stop()
		conn.Close()
		return nil, 0, err
	}
	size, _ := hdr.PayloadLen()
	return &stopConn{Conn: conn, stop: stop}, size, nil
}

func (c *Client) exchange(conn net.Conn, req []byte) (*protocol.ResponseHeader, error) {
	if _, err := conn.Write(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	hdr, err := protocol.ReadResponseHeader(conn)
	if err != nil {
		return nil, err
	}
	switch hdr.Code() {
	case protocol.CodeOK:
		return hdr, nil
	case protocol.CodeError:
		return nil, ErrRemote
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnexpectedCode, hdr.Code())
	}
}

// stopConn detaches the context watcher when the payload has been read.
type stopConn struct {
	net.Conn
	stop func() bool
}

func (c *stopConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
