package mode

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	relaypkg "github.com/khaledhikmat/vr-go/relay"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

// The relay mode runs the WebSocket endpoint, the hub, the session
// idle-eviction sweep and the stats/error fan-in. Only a listener bind
// failure is fatal; everything else is per-request.
func Relay(canxCtx context.Context, svcs relaypkg.ServicesFactory) error {
	// Create an error stream
	// WARNING: never closed; connection goroutines may still be reporting
	// while the shutdown drain runs
	errorStream := make(chan interface{}, 100)

	// Create a stats stream
	statsStream := make(chan interface{}, 100)

	hub := relaypkg.NewHub()
	go hub.Run(canxCtx, svcs)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", relaypkg.Handler(canxCtx, svcs, hub, errorStream, statsStream))
	mux.HandleFunc("/healthz", healthzHandler(hub, svcs))
	mux.HandleFunc("/model_info", modelInfoHandler(canxCtx, svcs))

	server := &http.Server{
		Addr:    svcs.CfgSvc.GetListenAddress(),
		Handler: mux,
	}

	serverResult := make(chan error, 1)
	go func() {
		lgr.Logger.Info(
			"relay listening",
			slog.String("address", svcs.CfgSvc.GetListenAddress()),
			slog.String("backend", svcs.CfgSvc.GetBackendURL()),
		)
		serverResult <- server.ListenAndServe()
	}()

	relayStartTime := time.Now().Unix()

	// Wait for cancellation, server exit, timeout, stats or errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"relay context cancelled",
			)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), svcs.CfgSvc.GetModeMaxShutdownTime())
			if err := server.Shutdown(shutdownCtx); err != nil {
				lgr.Logger.Error(
					"error shutting down relay server",
					slog.Any("error", err),
				)
			}
			shutdownCancel()
			goto resume

		case err := <-serverResult:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				// Cannot bind or serve; this one is fatal
				return err
			}
			goto resume

		case <-time.After(svcs.CfgSvc.GetRelayPeriodicTimeout()):
			// Sweep idle sessions
			evicted := svcs.SessionSvc.EvictIdle(svcs.CfgSvc.GetSessionIdleTimeout())
			if evicted > 0 {
				lgr.Logger.Info(
					"evicted idle sessions",
					slog.Int("evicted", evicted),
				)
			}

			procStats(svcs.DataSvc, model.RelayStats{
				Connections: hub.Count(),
				Sessions:    svcs.SessionSvc.Count(),
				Uptime:      time.Now().Unix() - relayStartTime,
			})
			procStats(svcs.DataSvc, svcs.SessionSvc.Stats())
			procStats(svcs.DataSvc, svcs.BackendSvc.Stats())

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for the shutdown duration so that the
	// connection goroutines can report their final stats and errors
resume:
	lgr.Logger.Info(
		"relay is waiting for all go routines to exit",
	)

	timer := time.NewTimer(svcs.CfgSvc.GetModeMaxShutdownTime())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"relay shutdown waiting period expired. Exiting now",
				slog.Duration("period", svcs.CfgSvc.GetModeMaxShutdownTime()),
			)

			return nil

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

func healthzHandler(hub *relaypkg.Hub, svcs relaypkg.ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ok",
			"connections": hub.Count(),
			"sessions":    svcs.SessionSvc.Count(),
		})
	}
}

func modelInfoHandler(canxCtx context.Context, svcs relaypkg.ServicesFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(canxCtx, svcs.CfgSvc.GetBackendTimeout())
		defer cancel()

		info, err := svcs.BackendSvc.ModelInfo(ctx)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}
}
