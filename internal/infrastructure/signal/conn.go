package signal

import "time"

// wsConn is the part of *websocket.Conn the hub writes through.
type wsConn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// deadlineConn bounds every coordinator write so one stalled client cannot
// hold the hub lock past the configured write timeout. A timed-out write
// surfaces as a write error; the connection's read loop then runs the normal
// disconnect path.
type deadlineConn struct {
	conn    wsConn
	timeout time.Duration
}

func newDeadlineConn(conn wsConn, timeout time.Duration) *deadlineConn {
	return &deadlineConn{conn: conn, timeout: timeout}
}

func (c *deadlineConn) WriteJSON(v interface{}) error {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteJSON(v)
}

func (c *deadlineConn) Close() error {
	return c.conn.Close()
}
