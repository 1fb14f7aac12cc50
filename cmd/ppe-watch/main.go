// Command ppe-watch runs the live monitor against the newest image in a directory, for cameras
// that drop snapshots to disk.
package main

import (
	"PPEGuard/internal/config"
	"PPEGuard/pkg/log"
	ppePkg "PPEGuard/pkg/ppe"
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	var (
		dir      = flag.String("dir", ".", "directory the camera writes snapshots to")
		interval = flag.Duration("interval", ppePkg.DefaultMonitorInterval, "delay between samples")
	)
	flag.Parse()

	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	ppeConfig, err := config.LoadPPEConfig()
	if err != nil {
		logger.Fatal(err)
	}

	detector, err := config.NewDetector(logger)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	encoder := json.NewEncoder(os.Stdout)
	monitor := ppePkg.NewMonitor(newDirSource(*dir), detector, ppeConfig.Engine, *interval, func(update ppePkg.MonitorUpdate) {
		if !update.Summary.Compliant() || len(update.Alerts) > 0 {
			logger.WithFields(logrus.Fields{
				"timestamp": update.Timestamp,
				"alarms":    update.Summary.PersonsWithAlarm,
				"alerts":    len(update.Alerts),
			}).Warn("PPE violation in view")
		}
		if err := encoder.Encode(update); err != nil {
			logger.Errorf("Failed to write update: %v", err)
		}
	}, logger)

	if err := monitor.Start(ctx); err != nil {
		logger.Fatal(err)
	}
	logger.Infof("Watching %s every %s", *dir, *interval)

	monitor.Wait()
	logger.Info("Monitor stopped")
}
