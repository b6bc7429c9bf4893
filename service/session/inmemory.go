package session

import (
	"sync"
	"time"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
)

type session struct {
	id        string
	startedAt time.Time
	lastSeen  time.Time
	frames    int
	tracks    map[int][]model.TrackPoint
}

type inMemoryService struct {
	CfgSvc config.IService

	mu        sync.RWMutex
	sessions  map[string]*session
	evictions int64
}

// NewInMemory returns a process-lifetime session store. All state is
// lost on restart.
func NewInMemory(cfgsvc config.IService) IService {
	return &inMemoryService{
		CfgSvc:   cfgsvc,
		sessions: map[string]*session{},
	}
}

func (svc *inMemoryService) GetOrCreate(id string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.sessions[id]; ok {
		svc.sessions[id].lastSeen = time.Now()
		return false
	}

	svc.sessions[id] = &session{
		id:        id,
		startedAt: time.Now(),
		lastSeen:  time.Now(),
		tracks:    map[int][]model.TrackPoint{},
	}
	return true
}

func (svc *inMemoryService) RecordDetections(id string, detections []model.Detection) {
	limit := svc.CfgSvc.GetTrackHistoryLimit()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	sess, ok := svc.sessions[id]
	if !ok {
		// First contact happens via GetOrCreate; a racing eviction is the
		// only way to get here, in which case the session comes back
		sess = &session{
			id:        id,
			startedAt: time.Now(),
			tracks:    map[int][]model.TrackPoint{},
		}
		svc.sessions[id] = sess
	}

	sess.frames++
	sess.lastSeen = time.Now()

	for _, det := range detections {
		x, y := det.Center()
		points := append(sess.tracks[det.TrackID], model.TrackPoint{X: x, Y: y})
		if len(points) > limit {
			points = points[len(points)-limit:]
		}
		sess.tracks[det.TrackID] = points
	}
}

func (svc *inMemoryService) TrackHistory(id string, trackID int) []model.TrackPoint {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	sess, ok := svc.sessions[id]
	if !ok {
		return nil
	}

	points := sess.tracks[trackID]
	if len(points) == 0 {
		return nil
	}

	out := make([]model.TrackPoint, len(points))
	copy(out, points)
	return out
}

func (svc *inMemoryService) Snapshot(id string) (model.SessionInfo, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	sess, ok := svc.sessions[id]
	if !ok {
		return model.SessionInfo{}, false
	}

	return model.SessionInfo{
		ID:        sess.id,
		StartedAt: sess.startedAt,
		LastSeen:  sess.lastSeen,
		Frames:    sess.frames,
		Tracks:    len(sess.tracks),
	}, true
}

func (svc *inMemoryService) Evict(id string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.sessions[id]; ok {
		delete(svc.sessions, id)
		svc.evictions++
	}
}

func (svc *inMemoryService) EvictIdle(maxIdle time.Duration) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	evicted := 0
	now := time.Now()
	for id, sess := range svc.sessions {
		if now.Sub(sess.lastSeen) > maxIdle {
			delete(svc.sessions, id)
			svc.evictions++
			evicted++
		}
	}

	return evicted
}

func (svc *inMemoryService) Count() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.sessions)
}

func (svc *inMemoryService) Stats() model.SessionStoreStats {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	tracks := 0
	for _, sess := range svc.sessions {
		tracks += len(sess.tracks)
	}

	return model.SessionStoreStats{
		Sessions:  len(svc.sessions),
		Evictions: svc.evictions,
		Tracks:    tracks,
	}
}
