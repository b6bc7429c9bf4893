package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/relay"
	"github.com/khaledhikmat/vr-go/service/data"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

type Processor func(canxCtx context.Context, svcs relay.ServicesFactory) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.ConnectionStats:
		procConnectionStats(datasvc, stats)
	case model.RelayStats:
		procRelayStats(datasvc, stats)
	case model.SessionStoreStats:
		procSessionStoreStats(datasvc, stats)
	case model.BackendStats:
		procBackendStats(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procConnectionStats(datasvc data.IService, stats model.ConnectionStats) {
	err := datasvc.NewConnectionStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store connection stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procRelayStats(datasvc data.IService, stats model.RelayStats) {
	err := datasvc.NewRelayStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store relay stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSessionStoreStats(datasvc data.IService, stats model.SessionStoreStats) {
	err := datasvc.NewSessionStoreStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store session store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procBackendStats(datasvc data.IService, stats model.BackendStats) {
	err := datasvc.NewBackendStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store backend stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
