package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades a client connection and runs its read loop. The
// first message must be an init message carrying the session id; after
// that the client sends frame and ping messages. Frames are processed
// in arrival order; every failure is answered with an error message and
// the connection stays open.
func Handler(canxCtx context.Context, svcs ServicesFactory, hub *Hub, errorStream chan interface{}, statsStream chan interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			lgr.Logger.Error(
				"websocket upgrade error",
				slog.Any("error", err),
			)
			return
		}
		defer conn.Close()

		conn.SetReadLimit(maxMessageBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		client := &Client{
			ID:   uuid.NewString(),
			conn: conn,
		}

		// Close the socket on shutdown so the read loop unblocks
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-canxCtx.Done():
				conn.Close()
			case <-done:
			}
		}()

		// Await the init message with the session id
		if !initClient(svcs, client) {
			return
		}

		hub.Register(client)
		defer hub.Unregister(client)

		// Disconnect evicts the session and its rate window
		defer func() {
			svcs.SessionSvc.Evict(client.SessionID)
			svcs.GuardrailSvc.ResetSession(client.SessionID)
		}()

		readLoop(canxCtx, svcs, client, errorStream, statsStream)
	}
}

func initClient(svcs ServicesFactory, client *Client) bool {
	_, raw, err := client.conn.ReadMessage()
	if err != nil {
		return false
	}

	var req model.FrameRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		_ = client.writeJSON(model.ErrorMessage{
			Type:  model.MessageTypeError,
			Error: "invalid init message",
		})
		return false
	}

	if err := svcs.GuardrailSvc.ValidateSessionID(req.SessionID); err != nil {
		_ = client.writeJSON(model.ErrorMessage{
			Type:  model.MessageTypeError,
			Error: err.Error(),
		})
		return false
	}

	client.SessionID = req.SessionID
	svcs.SessionSvc.GetOrCreate(client.SessionID)

	_ = client.writeJSON(model.ConnectedMessage{
		Type:      model.MessageTypeConnected,
		SessionID: client.SessionID,
		Message:   "connected to streaming relay",
	})

	return true
}

func readLoop(canxCtx context.Context, svcs ServicesFactory, client *Client, errorStream chan interface{}, statsStream chan interface{}) {
	frames := 0
	errors := 0
	beginTime := time.Now().Unix()
	var totalProcTime time.Duration

	defer func() {
		endTime := time.Now().Unix()
		uptime := endTime - beginTime
		fps := 0
		if uptime > 0 {
			fps = int(float64(frames) / float64(uptime))
		}
		var avgProcTime float64
		if frames > 0 {
			avgProcTime = totalProcTime.Seconds() / float64(frames)
		}

		// WARNING: the stream may be draining during shutdown; don't block
		select {
		case statsStream <- model.ConnectionStats{
			ID:          client.ID,
			Session:     client.SessionID,
			Frames:      frames,
			Errors:      errors,
			Uptime:      uptime,
			FPS:         fps,
			AvgProcTime: avgProcTime,
		}:
		default:
		}
	}()

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				lgr.Logger.Info(
					"connection closed",
					slog.String("session", client.SessionID),
				)
			} else if canxCtx.Err() == nil {
				lgr.Logger.Info(
					"connection read error",
					slog.String("session", client.SessionID),
					slog.Any("error", err),
				)
			}
			return
		}

		_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req model.FrameRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			errors++
			_ = client.writeJSON(model.ErrorMessage{
				Type:      model.MessageTypeError,
				SessionID: client.SessionID,
				Error:     "invalid message encoding",
			})
			continue
		}

		switch req.Type {
		case model.MessageTypePing:
			_ = client.writeJSON(model.PongMessage{Type: model.MessageTypePong})

		case model.MessageTypeFrame:
			started := time.Now()
			resp, procErr := processFrame(canxCtx, svcs, client, req, errorStream)
			totalProcTime += time.Since(started)

			if procErr != nil {
				errors++
				_ = client.writeJSON(model.ErrorMessage{
					Type:      model.MessageTypeError,
					SessionID: client.SessionID,
					Error:     procErr.Error(),
				})
				continue
			}

			frames++
			if err := client.writeJSON(resp); err != nil {
				// Client went away mid-flight; the next read fails and
				// tears the loop down
				errors++
			}

		default:
			errors++
			_ = client.writeJSON(model.ErrorMessage{
				Type:      model.MessageTypeError,
				SessionID: client.SessionID,
				Error:     "unknown message type: " + req.Type,
			})
		}
	}
}
