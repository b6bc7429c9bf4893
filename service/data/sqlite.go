package data

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
`

type sqliteService struct {
	CfgSvc config.IService
	DB     *sql.DB
}

// NewSqlite returns a data service persisting stats and errors in a
// sqlite database under the data folder, one row per entity with the
// entity JSON in the payload column.
func NewSqlite(cfgsvc config.IService) IService {
	if err := os.MkdirAll(cfgsvc.GetDataFolder(), 0755); err != nil {
		lgr.Logger.Error("error creating data folder", slog.Any("error", err))
		panic("error creating data folder")
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s/relay.db", cfgsvc.GetDataFolder()))
	if err != nil {
		lgr.Logger.Error("error opening sqlite database", slog.Any("error", err))
		panic("error opening sqlite database")
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		lgr.Logger.Error("error creating sqlite schema", slog.Any("error", err))
		panic("error creating sqlite schema")
	}

	return &sqliteService{
		CfgSvc: cfgsvc,
		DB:     db,
	}
}

func (svc *sqliteService) NewError(err interface{}) error {
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else {
		customErr.Processor = "N/A"
		customErr.Inner = err.(error)
		customErr.Message = err.(error).Error()
		customErr.StackTrace = "N/A"
		customErr.Misc = nil
	}

	errorData := struct {
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Processor:  customErr.Processor,
		Inner:      customErr.Inner.Error(),
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return svc.insert(errorData, "errors")
}

func (svc *sqliteService) NewConnectionStats(stats model.ConnectionStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.insert(stats, "connection-stats")
}

func (svc *sqliteService) NewRelayStats(stats model.RelayStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.insert(stats, "relay-stats")
}

func (svc *sqliteService) NewSessionStoreStats(stats model.SessionStoreStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.insert(stats, "session-stats")
}

func (svc *sqliteService) NewBackendStats(stats model.BackendStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.insert(stats, "backend-stats")
}

func (svc *sqliteService) insert(entity interface{}, kind string) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	_, err = svc.DB.Exec("INSERT INTO entities (kind, timestamp, payload) VALUES (?, ?, ?)",
		kind, time.Now().Unix(), string(payload))
	return err
}
