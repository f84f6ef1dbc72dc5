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
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/stratis-storage/go-dbus-client-gen/internal/application"
	"github.com/stratis-storage/go-dbus-client-gen/internal/config"
	"github.com/stratis-storage/go-dbus-client-gen/internal/logging"
	"github.com/stratis-storage/go-dbus-client-gen/internal/proxy"
)

const primeTimeout = 30 * time.Second

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("dbusmond", "Managed-objects bridge - caches a D-Bus service's object tree and answers queries over HTTP")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the bridge").String()
	bus := kingpinApp.Flag("bus", "Bus to connect to (session or system)").String()
	busAddress := kingpinApp.Flag("bus-address", "Explicit bus address, overrides --bus").String()
	service := kingpinApp.Flag("service", "Destination bus name of the bridged service").String()
	managerPath := kingpinApp.Flag("manager-path", "Object path of the service's ObjectManager").String()
	specDir := kingpinApp.Flag("spec-dir", "Directory of introspection XML files").String()
	refreshInterval := kingpinApp.Flag("refresh-interval", "Minimum interval between bus refreshes (set 0 to disable)").Default("-1ns").Duration()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	debug := kingpinApp.Flag("debug", "Enable debug logging").Bool()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	for _, entry := range []struct {
		src *string
		dst **string
	}{
		{port, &overrides.Port},
		{bus, &overrides.Bus},
		{busAddress, &overrides.BusAddress},
		{service, &overrides.Service},
		{managerPath, &overrides.ManagerPath},
		{specDir, &overrides.SpecDir},
	} {
		if *entry.src != "" {
			*entry.dst = entry.src
		}
	}

	if *refreshInterval >= 0 {
		overrides.RefreshInterval = refreshInterval
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

	logger, err := logging.New(logging.WithDebug(*debug))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	conn, err := proxy.Connect(cfg.Bus, cfg.BusAddress)
	if err != nil {
		logger.Fatal("failed to connect to bus", zap.Error(err))
	}
	defer func() {
		_ = conn.Close()
	}()

	client := proxy.NewClient(conn, cfg.Service, dbus.ObjectPath(cfg.ManagerPath),
		proxy.WithRefreshInterval(cfg.RefreshInterval))

	app, err := application.New(cfg, client, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	primeCtx, cancel := context.WithTimeout(context.Background(), primeTimeout)
	if err := app.Prime(primeCtx); err != nil {
		// The bridged service may not be on the bus yet; requests can
		// refresh the snapshot once it appears.
		logger.Warn("serving with empty snapshot", zap.Error(err))
	}
	cancel()

	if err := app.Start(); err != nil {
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
