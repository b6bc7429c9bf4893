package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vr-go/mode"
	"github.com/khaledhikmat/vr-go/relay"
	"github.com/khaledhikmat/vr-go/service/backend"
	"github.com/khaledhikmat/vr-go/service/config"
	"github.com/khaledhikmat/vr-go/service/data"
	"github.com/khaledhikmat/vr-go/service/guardrail"
	"github.com/khaledhikmat/vr-go/service/lgr"
	"github.com/khaledhikmat/vr-go/service/session"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"relay": mode.Relay,
	"probe": mode.Probe,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file found, relying on defaults", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "relay"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// Config service
	cfgSvc := config.NewEnv()
	// Data service
	var dataSvc data.IService
	if cfgSvc.GetDataServiceType() == "sqlite" {
		dataSvc = data.NewSqlite(cfgSvc)
	} else {
		dataSvc = data.NewFilesDB(cfgSvc)
	}
	// Session service
	sessionSvc := session.NewInMemory(cfgSvc)
	// Guardrail service
	guardrailSvc := guardrail.NewLimits(cfgSvc)
	// Backend service
	backendSvc := backend.NewHTTP(cfgSvc)

	svcs := relay.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		BackendSvc:   backendSvc,
		SessionSvc:   sessionSvc,
		GuardrailSvc: guardrailSvc,
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation, mode proc or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"relay pod context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"relay pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are exiting
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"relay pod is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"relay pod shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"relay pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}
