package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/mockgov-settings/internal/application"
	"github.com/eugenenazirov/mockgov-settings/internal/config"
	"github.com/eugenenazirov/mockgov-settings/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("mockgov-settings", "Mock endpoint override registry for the Danish government integration mocks")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	provider := kingpinApp.Flag("provider", "OpenID Connect provider key under openid_connect.settings").String()
	logLevel := kingpinApp.Flag("log-level", "Minimum log level (debug, info, warn, error)").String()

	serveCmd := kingpinApp.Command("serve", "Load the override sources and serve them over HTTP").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	base := serveCmd.Flag("base", "Base override source").String()
	overrideSources := serveCmd.Flag("override", "Override source applied after the base; repeatable, later wins").Strings()
	var watchSet bool
	watch := serveCmd.Flag("watch", "Reload when a source file changes").IsSetByUser(&watchSet).Bool()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	validateCmd := kingpinApp.Command("validate", "Load, overlay and bind the given sources, reporting the first error")
	validateFiles := validateCmd.Arg("files", "Sources in application order").Required().ExistingFiles()

	getCmd := kingpinApp.Command("get", "Print one value from the overlay of the given sources")
	getPath := getCmd.Arg("path", "Dotted key path, e.g. serviceplatformen.settings.cpr_endpoint").Required().String()
	getFiles := getCmd.Arg("files", "Sources in application order").Required().ExistingFiles()

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	switch command {
	case validateCmd.FullCommand():
		kingpinApp.FatalIfError(runValidate(os.Stdout, *provider, *validateFiles), "validate")
		return
	case getCmd.FullCommand():
		kingpinApp.FatalIfError(runGet(os.Stdout, *getPath, *getFiles), "get")
		return
	}

	overrides := &config.CLIOverrides{
		ConfigFile:      *configFile,
		OverrideSources: *overrideSources,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *base != "" {
		overrides.BaseSource = base
	}

	if *provider != "" {
		overrides.Provider = provider
	}

	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}

	if watchSet {
		overrides.Watch = watch
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
