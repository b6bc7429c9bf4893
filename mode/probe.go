package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vr-go/relay"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

// The probe mode is a one-shot operational check: it asks the inference
// backend for its model info and exits. Useful to verify the backend URL
// and model before starting the relay.
func Probe(canxCtx context.Context, svcs relay.ServicesFactory) error {
	ctx, cancel := context.WithTimeout(canxCtx, svcs.CfgSvc.GetBackendTimeout())
	defer cancel()

	info, err := svcs.BackendSvc.ModelInfo(ctx)
	if err != nil {
		lgr.Logger.Error(
			"backend probe failed",
			slog.String("backend", svcs.CfgSvc.GetBackendURL()),
			slog.Any("error", err),
		)
		return err
	}

	lgr.Logger.Info(
		"backend probe succeeded",
		slog.String("backend", svcs.CfgSvc.GetBackendURL()),
		slog.String("modelType", info.ModelType),
		slog.Int("numClasses", info.NumClasses),
		slog.String("inputSize", info.InputSize),
		slog.Bool("trackingEnabled", info.TrackingEnabled),
	)

	return nil
}
