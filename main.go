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

	"github.com/khaledhikmat/dfd-go/mode"
	"github.com/khaledhikmat/dfd-go/pipeline"
	"github.com/khaledhikmat/dfd-go/service/cache"
	"github.com/khaledhikmat/dfd-go/service/classifier"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/media"
	"github.com/khaledhikmat/dfd-go/service/storage"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"server": mode.Server,
	"scan":   mode.Scan,
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
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			panic("error loading .env file")
		}
	}

	modeType := "server"
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
	// They can be overridden by the mode processor with different implementations
	// Config service
	cfgSvc := config.NewHardCoded()
	if path := os.Getenv("DFD_CONFIG_FILE"); path != "" {
		tomlSvc, err := config.NewFromTOML(path)
		if err != nil {
			lgr.Logger.Error("error loading config file", slog.String("path", path), slog.Any("error", err))
			panic("error loading config file")
		}
		cfgSvc = tomlSvc
	}
	// Classifier service
	classifierSvc, err := classifier.NewDNN(cfgSvc)
	if err != nil {
		lgr.Logger.Error("error loading classifier model", slog.Any("error", err))
		panic("error loading classifier model")
	}
	// Media service
	mediaSvc := media.NewHTTP(cfgSvc)
	// Cache service
	cacheSvc := cache.NewMemory(cfgSvc)
	// Storage service (debug frames)
	storageSvc := storage.NewFiles(cfgSvc)

	svcs := pipeline.ServicesFactory{
		CfgSvc:        cfgSvc,
		ClassifierSvc: classifierSvc,
		MediaSvc:      mediaSvc,
		CacheSvc:      cacheSvc,
		StorageSvc:    storageSvc,
	}

	engine, err := pipeline.NewEngine(svcs)
	if err != nil {
		lgr.Logger.Error("error creating engine", slog.Any("error", err))
		panic("error creating engine")
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, engine)
	}()

	// Wait for cancellation or mode proc exit
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"main context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Error(
					"mode processor returned an error",
					slog.Any("error", err),
				)
			}
			canxFn()
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` seconds so the mode
	// processor and its go routines can exit cleanly
resume:
	lgr.Logger.Info(
		"main is waiting for all go routines to exit",
		slog.Duration("period", waitOnShutdown),
	)

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	<-timer.C

	engine.Close()
	cacheSvc.Finalize()
	storageSvc.Finalize()

	lgr.Logger.Info("main exiting now")
}
