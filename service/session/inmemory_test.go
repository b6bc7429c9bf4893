package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
)

func det(trackID int, x1, y1, x2, y2 float64) model.Detection {
	return model.Detection{
		BBox:       [4]float64{x1, y1, x2, y2},
		Confidence: 0.9,
		ClassID:    0,
		ClassName:  "person",
		TrackID:    trackID,
	}
}

func TestGetOrCreate(t *testing.T) {
	svc := NewInMemory(config.NewEnv())

	assert.True(t, svc.GetOrCreate("cam-1"))
	assert.False(t, svc.GetOrCreate("cam-1"))
	assert.Equal(t, 1, svc.Count())

	assert.True(t, svc.GetOrCreate("cam-2"))
	assert.Equal(t, 2, svc.Count())
}

func TestTrackHistoryBound(t *testing.T) {
	t.Setenv("TRACK_HISTORY_LIMIT", "30")
	svc := NewInMemory(config.NewEnv())
	svc.GetOrCreate("cam-1")

	// Way more frames than the bound
	for i := 0; i < 500; i++ {
		svc.RecordDetections("cam-1", []model.Detection{
			det(7, float64(i), float64(i), float64(i)+10, float64(i)+10),
		})
	}

	history := svc.TrackHistory("cam-1", 7)
	require.Len(t, history, 30)

	// The ring keeps the most recent points
	last := history[len(history)-1]
	assert.Equal(t, 499.0+5, last.X)
	assert.Equal(t, 499.0+5, last.Y)
}

func TestSessionIndependence(t *testing.T) {
	svc := NewInMemory(config.NewEnv())
	svc.GetOrCreate("cam-a")
	svc.GetOrCreate("cam-b")

	svc.RecordDetections("cam-a", []model.Detection{det(1, 0, 0, 10, 10)})

	assert.NotEmpty(t, svc.TrackHistory("cam-a", 1))
	assert.Empty(t, svc.TrackHistory("cam-b", 1))

	info, ok := svc.Snapshot("cam-b")
	require.True(t, ok)
	assert.Equal(t, 0, info.Frames)
	assert.Equal(t, 0, info.Tracks)
}

func TestEvict(t *testing.T) {
	svc := NewInMemory(config.NewEnv())
	svc.GetOrCreate("cam-1")
	svc.RecordDetections("cam-1", []model.Detection{det(1, 0, 0, 10, 10)})

	svc.Evict("cam-1")

	assert.Equal(t, 0, svc.Count())
	assert.Empty(t, svc.TrackHistory("cam-1", 1))
	_, ok := svc.Snapshot("cam-1")
	assert.False(t, ok)

	// Evicting twice is a no-op
	svc.Evict("cam-1")
	assert.EqualValues(t, 1, svc.Stats().Evictions)
}

func TestEvictIdle(t *testing.T) {
	svc := NewInMemory(config.NewEnv())
	svc.GetOrCreate("stale")
	time.Sleep(20 * time.Millisecond)
	svc.GetOrCreate("fresh")

	evicted := svc.EvictIdle(10 * time.Millisecond)

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, svc.Count())
	_, ok := svc.Snapshot("fresh")
	assert.True(t, ok)
}

func TestSnapshot(t *testing.T) {
	svc := NewInMemory(config.NewEnv())
	svc.GetOrCreate("cam-1")

	svc.RecordDetections("cam-1", []model.Detection{
		det(1, 0, 0, 10, 10),
		det(2, 20, 20, 30, 30),
	})
	svc.RecordDetections("cam-1", []model.Detection{det(1, 1, 1, 11, 11)})

	info, ok := svc.Snapshot("cam-1")
	require.True(t, ok)
	assert.Equal(t, 2, info.Frames)
	assert.Equal(t, 2, info.Tracks)
	assert.False(t, info.StartedAt.IsZero())
	assert.False(t, info.LastSeen.Before(info.StartedAt))
}

func TestConcurrentSessions(t *testing.T) {
	t.Setenv("TRACK_HISTORY_LIMIT", "30")
	svc := NewInMemory(config.NewEnv())

	var wg sync.WaitGroup
	for s := 0; s < 8; s++ {
		sessionID := fmt.Sprintf("cam-%d", s)
		svc.GetOrCreate(sessionID)

		wg.Add(1)
		go func(sessionID string, offset float64) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				svc.RecordDetections(sessionID, []model.Detection{
					det(1, offset, offset, offset+10, offset+10),
				})
			}
		}(sessionID, float64(s*1000))
	}
	wg.Wait()

	for s := 0; s < 8; s++ {
		sessionID := fmt.Sprintf("cam-%d", s)
		history := svc.TrackHistory(sessionID, 1)
		require.Len(t, history, 30, sessionID)

		// Every point belongs to this session's own coordinate block
		want := float64(s*1000) + 5
		for _, p := range history {
			assert.Equal(t, want, p.X, sessionID)
		}
	}
}
