package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/vr-go/service/backend"
	"github.com/khaledhikmat/vr-go/service/config"
	"github.com/khaledhikmat/vr-go/service/data"
	"github.com/khaledhikmat/vr-go/service/guardrail"
	"github.com/khaledhikmat/vr-go/service/session"
)

const (
	// Time allowed to read the next message before the connection is
	// considered dead. Pongs and any inbound message reset it.
	pongWait = 60 * time.Second

	// Base64 frames top out at the guardrail's 10MB; leave headroom for
	// the JSON envelope.
	maxMessageBytes = 12 * 1024 * 1024

	writeWait = 10 * time.Second
)

type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	BackendSvc   backend.IService
	SessionSvc   session.IService
	GuardrailSvc guardrail.IService
}

// Client is one connected WebSocket peer. Frames are processed
// synchronously in the read loop, which keeps per-session ordering;
// writes are serialized because the hub stats broadcaster shares the
// socket with the read loop's responses.
type Client struct {
	ID        string
	SessionID string

	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}
