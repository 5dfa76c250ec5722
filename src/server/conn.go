package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/danmuck/nftp/src/protocol"
	logs "github.com/danmuck/smplog"
)

type connState int

const (
	stateAccepted connState = iota
	stateReading
	stateDecoding
	stateExecuting
	stateResponding
	stateFailing
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAccepted:
		return "accepted"
	case stateReading:
		return "reading"
	case stateDecoding:
		return "decoding"
	case stateExecuting:
		return "executing"
	case stateResponding:
		return "responding"
	case stateFailing:
		return "failing"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// connection owns everything one request needs; nothing here is shared with
// other connections except the read-only server fields.
type connection struct {
	srv     *Server
	conn    net.Conn
	addr    string
	state   connState
	version protocol.Version
	op      string
	started time.Time
}

func (s *Server) newConnection(conn net.Conn) *connection {
	return &connection{
		srv:     s,
		conn:    conn,
		addr:    conn.RemoteAddr().String(),
		state:   stateAccepted,
		version: protocol.V1_0,
		op:      "none",
		started: time.Now(),
	}
}

func (c *connection) transition(next connState) {
	logs.Debugf("conn %s: %s -> %s", c.addr, c.state, next)
	c.state = next
}

// lingerTimeout bounds how long a failed connection drains unread request
// bytes after the error frame, and lingerLimit how many it drains.
const (
	lingerTimeout = 250 * time.Millisecond
	lingerLimit   = 64 << 10
)

// serve handles exactly one request and closes the connection.
func (c *connection) serve(ctx context.Context) {
	linger := false
	defer func() {
		c.transition(stateClosed)
		if linger {
			c.lingerClose()
			return
		}
		c.conn.Close()
	}()

	reqCtx := ctx
	if t := c.srv.cfg.RequestTimeout; t > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
		_ = c.conn.SetDeadline(time.Now().Add(t))
	}

	c.transition(stateReading)
	buf := make([]byte, c.srv.cfg.ReadBufferSize)
	n, err := c.conn.Read(buf)
	if n == 0 {
		// peer closed or never sent anything: nothing to answer
		if err != nil && !errors.Is(err, io.EOF) {
			logs.Debugf("conn %s: read: %v", c.addr, err)
		}
		return
	}

	c.transition(stateDecoding)
	v, in, err := protocol.DecodeRequest(buf[:n])
	if err != nil {
		if n == len(buf) && errors.Is(err, protocol.ErrTruncated) {
			logs.Warnf("conn %s: request exceeds %d byte buffer", c.addr, len(buf))
		}
		linger = true
		c.fail(ctx, err)
		return
	}
	c.version = v
	c.op = in.Op.String()

	// the request budget ends here; writes are bounded per write instead
	_ = c.conn.SetDeadline(time.Time{})

	c.transition(stateExecuting)
	w := &idleWriter{conn: c.conn, timeout: c.srv.cfg.WriteTimeout}
	res, err := execute(reqCtx, c.srv.root, w, v, in)
	c.srv.metrics.recordBytes(c.op, res.payload)
	if err != nil {
		if res.headerSent {
			// the success header is out; all we can do is hang up
			logs.Warnf("conn %s: %s aborted after header: %v", c.addr, c.op, err)
			c.finish(err)
			return
		}
		linger = true
		c.fail(ctx, err)
		return
	}

	c.transition(stateResponding)
	logs.Infof("conn %s: %s %q ok (%d bytes)", c.addr, c.op, in.Path(), res.payload)
	c.finish(nil)
}

// lingerClose half-closes the connection and drains what the peer still has
// in flight, so closing with unread input does not reset the connection
// before the peer has read the error frame.
func (c *connection) lingerClose() {
	defer c.conn.Close()
	cw, ok := c.conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	if n, err := io.Copy(io.Discard, io.LimitReader(c.conn, lingerLimit)); n > 0 || err != nil {
		logs.Debugf("conn %s: drained %d unread bytes: %v", c.addr, n, err)
	}
}

// idleWriter refreshes the write deadline before every write, so a transfer
// may run as long as the peer keeps reading.
type idleWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *idleWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	return w.conn.Write(p)
}

// fail reports err to the peer with the generic error frame.
func (c *connection) fail(ctx context.Context, err error) {
	c.transition(stateFailing)
	logs.Warnf("conn %s: %s failed: %v", c.addr, c.op, err)

	// the retry path runs on its own per-attempt deadlines
	_ = c.conn.SetDeadline(time.Time{})
	if sendErr := c.srv.reporter.send(ctx, c.conn, c.addr, c.version); sendErr != nil {
		logs.Errorf(sendErr, "conn %s: error frame not delivered", c.addr)
	}
	c.finish(err)
}

func (c *connection) finish(err error) {
	c.srv.metrics.recordRequest(c.op, protocol.Kind(err), time.Since(c.started))
}
