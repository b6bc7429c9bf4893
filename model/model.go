package model

import (
	"fmt"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Detection is one detected object in one frame as reported by the
// inference backend. TrackID is persistent across frames of a session.
type Detection struct {
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2 in pixels
	Confidence float64    `json:"confidence"`
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
	TrackID    int        `json:"track_id"`
}

// Center returns the bbox center point used for track history.
func (d Detection) Center() (float64, float64) {
	return (d.BBox[0] + d.BBox[2]) / 2, (d.BBox[1] + d.BBox[3]) / 2
}

// TrackPoint is one historical bbox center of a tracked object.
type TrackPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DetectionResult is the inference backend response for one frame.
type DetectionResult struct {
	Detections     []Detection `json:"detections"`
	FrameShape     []int       `json:"frame_shape"` // rows, cols
	Timestamp      float64     `json:"timestamp"`
	SessionID      string      `json:"session_id"`
	AnnotatedFrame string      `json:"annotated_frame,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// ModelInfo describes the model loaded by the inference backend.
type ModelInfo struct {
	ModelType       string            `json:"model_type"`
	Classes         map[string]string `json:"classes"`
	NumClasses      int               `json:"num_classes"`
	InputSize       string            `json:"input_size"`
	TrackingEnabled bool              `json:"tracking_enabled"`
}

// Client message types
const (
	MessageTypeInit  = "init"
	MessageTypeFrame = "frame"
	MessageTypePing  = "ping"
)

// Server message types
const (
	MessageTypeConnected = "connected"
	MessageTypeDetection = "detection_result"
	MessageTypePong      = "pong"
	MessageTypeStats     = "stats"
	MessageTypeError     = "error"
)

// FrameRequest is a client -> relay WebSocket message. Init and ping
// messages re-use the same envelope with their payload fields empty.
type FrameRequest struct {
	Type            string `json:"type"`
	Frame           string `json:"frame,omitempty"` // base64, optionally data-URL prefixed
	SessionID       string `json:"session_id,omitempty"`
	ReturnAnnotated bool   `json:"return_annotated,omitempty"`
}

// DetectionResponse is a relay -> client detection result message.
type DetectionResponse struct {
	Type           string      `json:"type"`
	SessionID      string      `json:"session_id"`
	Detections     []Detection `json:"detections"`
	FrameShape     []int       `json:"frame_shape"`
	Timestamp      float64     `json:"timestamp"`
	AnnotatedFrame string      `json:"annotated_frame,omitempty"`
}

type ConnectedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type PongMessage struct {
	Type string `json:"type"`
}

type StatsMessage struct {
	Type              string `json:"type"`
	ActiveConnections int    `json:"active_connections"`
	Timestamp         string `json:"timestamp"`
}

type ErrorMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error"`
}

// SessionInfo is a read-only snapshot of one session's state.
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	LastSeen  time.Time `json:"lastSeen"`
	Frames    int       `json:"frames"`
	Tracks    int       `json:"tracks"`
}

type ConnectionStats struct {
	ID          string  `json:"id"`
	Session     string  `json:"session"`
	Frames      int     `json:"frames"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	FPS         int     `json:"fps"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type RelayStats struct {
	Connections int   `json:"connections"`
	Sessions    int   `json:"sessions"`
	Uptime      int64 `json:"uptime"`
	Timestamp   int64 `json:"timestamp"`
}

type SessionStoreStats struct {
	Sessions  int   `json:"sessions"`
	Evictions int64 `json:"evictions"`
	Tracks    int   `json:"tracks"`
	Timestamp int64 `json:"timestamp"`
}

type BackendStats struct {
	Calls      int64   `json:"calls"`
	Errors     int64   `json:"errors"`
	AvgLatency float64 `json:"avgLatency"` // seconds
	Timestamp  int64   `json:"timestamp"`
}
