package data

import "github.com/khaledhikmat/vr-go/model"

type IService interface {
	NewError(err interface{}) error
	NewConnectionStats(stats model.ConnectionStats) error
	NewRelayStats(stats model.RelayStats) error
	NewSessionStoreStats(stats model.SessionStoreStats) error
	NewBackendStats(stats model.BackendStats) error
}
