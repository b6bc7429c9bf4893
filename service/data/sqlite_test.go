package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
)

func newSqliteDB(t *testing.T) (IService, string) {
	t.Helper()

	folder := t.TempDir()
	t.Setenv("DATA_FOLDER", folder)
	t.Setenv("DATA_SERVICE_TYPE", "sqlite")
	return NewSqlite(config.NewEnv()), folder
}

func queryEntities(t *testing.T, folder, kind string) []map[string]interface{} {
	t.Helper()

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s/relay.db", folder))
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT payload FROM entities WHERE kind = ? ORDER BY id", kind)
	require.NoError(t, err)
	defer rows.Close()

	var entities []map[string]interface{}
	for rows.Next() {
		var payload string
		require.NoError(t, rows.Scan(&payload))

		var entity map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(payload), &entity))
		entities = append(entities, entity)
	}
	require.NoError(t, rows.Err())
	return entities
}

func TestSqliteStats(t *testing.T) {
	svc, folder := newSqliteDB(t)

	require.NoError(t, svc.NewBackendStats(model.BackendStats{Calls: 10, Errors: 1, AvgLatency: 0.25}))
	require.NoError(t, svc.NewSessionStoreStats(model.SessionStoreStats{Sessions: 4, Evictions: 2, Tracks: 7}))
	require.NoError(t, svc.NewBackendStats(model.BackendStats{Calls: 20, Errors: 1, AvgLatency: 0.20}))

	backendStats := queryEntities(t, folder, "backend-stats")
	require.Len(t, backendStats, 2)
	assert.EqualValues(t, 10, backendStats[0]["calls"])
	assert.EqualValues(t, 20, backendStats[1]["calls"])

	sessionStats := queryEntities(t, folder, "session-stats")
	require.Len(t, sessionStats, 1)
	assert.EqualValues(t, 4, sessionStats[0]["sessions"])
}

func TestSqliteError(t *testing.T) {
	svc, folder := newSqliteDB(t)

	custom := model.GenError("relay_processor", fmt.Errorf("boom"), nil, "backend call failed")
	require.NoError(t, svc.NewError(custom))

	entities := queryEntities(t, folder, "errors")
	require.Len(t, entities, 1)
	assert.Equal(t, "relay_processor", entities[0]["processor"])
	assert.Equal(t, "backend call failed", entities[0]["message"])
}
