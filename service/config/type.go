package config

import "time"

// GuardrailParameters bounds what the relay accepts from clients and
// what it forwards back from the backend.
type GuardrailParameters struct {
	MaxFrameBytes         int     // max base64 payload size
	MinPayloadLength      int     // anything shorter cannot be an encoded image
	MinDimension          int     // pixels
	MaxDimension          int     // pixels
	MaxFramesPerSecond    int     // per-session rate limit
	MinConfidence         float64 // detections below are dropped
	MinBoxArea            float64 // pixels squared
	MaxDetectionsPerFrame int
}

type IService interface {
	GetModeMaxShutdownTime() time.Duration
	GetListenAddress() string
	GetBackendURL() string
	GetBackendTimeout() time.Duration
	GetSessionIdleTimeout() time.Duration
	GetRelayPeriodicTimeout() time.Duration
	GetStatsBroadcastPeriod() time.Duration
	GetTrackHistoryLimit() int
	GetAnnotationJPEGQuality() int
	GetDataFolder() string
	GetDataServiceType() string
	GetGuardrailParameters() GuardrailParameters
}
