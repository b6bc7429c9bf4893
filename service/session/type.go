package session

import (
	"time"

	"github.com/khaledhikmat/vr-go/model"
)

// IService owns all per-session state: track histories and frame
// counters. Implementations must be safe for concurrent use; sessions
// are fully independent of each other.
type IService interface {
	GetOrCreate(id string) bool
	RecordDetections(id string, detections []model.Detection)
	TrackHistory(id string, trackID int) []model.TrackPoint
	Snapshot(id string) (model.SessionInfo, bool)
	Evict(id string)
	EvictIdle(maxIdle time.Duration) int
	Count() int
	Stats() model.SessionStoreStats
}
