package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// InitializeSchedules scans the library once now and then every ScanInterval
// minutes. The returned scheduler is already running.
func (serverHandler *ServerHandler) InitializeSchedules() (*cron.Cron, error) {
	interval := serverHandler.ServerConfig.ScanInterval
	if interval < 1 {
		interval = 10
	}

	// Run scan job immediately at startup in a goroutine
	Logger.Info("Running library scan at startup")
	go serverHandler.scanJobFunc()

	c := cron.New()
	var scanJob cron.Job
	scanJob = cron.FuncJob(serverHandler.scanJobFunc)
	scanJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(scanJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), scanJob); err != nil {
		return nil, fmt.Errorf("unable to schedule library scan: %w", err)
	}
	Logger.Info("Adding library scan scheduler", "interval_minutes", interval)
	c.Start()
	return c, nil
}

func (serverHandler *ServerHandler) scanJobFunc() {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Library scan panicked", "panic", r)
		}
	}()
	if _, err := serverHandler.ScanLibrary(context.Background()); err != nil {
		Logger.Error("Library scan failed", "error", err)
	}
}
