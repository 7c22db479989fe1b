package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clusterfs/clusterfs/internal/logger"
	"github.com/clusterfs/clusterfs/pkg/config"
	"github.com/clusterfs/clusterfs/pkg/fs"
)

// seedInitialStructure creates a small demo tree through the adapter so a
// fresh cluster has something to list.
func seedInitialStructure(filesystem *fs.FileSystem) error {
	if ok, err := filesystem.Exists("/demo"); err != nil {
		return err
	} else if ok {
		return nil
	}

	if ok, err := filesystem.Mkdirs("/demo/docs", 0755); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("failed to create /demo/docs")
	}

	files := []struct {
		path    string
		content string
	}{
		{"/demo/readme.txt", "Welcome to clusterfs!\n"},
		{"/demo/docs/notes.txt", "Notes about this cluster.\n"},
	}

	for _, f := range files {
		w, err := filesystem.Create(f.path, 0644, fs.CreateOverwrite, nil)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", f.path, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", f.path, err)
		}
	}

	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	seed := flag.Bool("seed", false, "Create a small demo tree on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.Output != "" && cfg.Logging.Output != "stdout" && cfg.Logging.Output != "stderr" {
		out, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log output %s: %v", cfg.Logging.Output, err)
		}
		defer func() { _ = out.Close() }()
		logger.SetOutput(out)
	} else if cfg.Logging.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	}

	fmt.Println("clusterfs - distributed storage filesystem adapter")
	logger.Info("Log level set to: %s", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics stack
	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Native client and filesystem
	client, err := config.CreateNativeClient(ctx, &cfg.Native)
	if err != nil {
		log.Fatalf("Failed to create native client: %v", err)
	}

	filesystem := fs.New(client, metricsResult.Filesystem)
	if err := filesystem.Initialize(&cfg.Filesystem); err != nil {
		log.Fatalf("Failed to initialize filesystem: %v", err)
	}
	logger.Info("Filesystem initialized: uri=%s, native=%s", cfg.Filesystem.URI, cfg.Native.Type)

	if *seed {
		if err := seedInitialStructure(filesystem); err != nil {
			log.Fatalf("Failed to seed initial structure: %v", err)
		}
		logger.Info("Demo tree seeded under /demo")
	}

	if status, err := filesystem.StatFS("/"); err != nil {
		logger.Warn("Failed to stat cluster: %v", err)
	} else {
		logger.Info("Cluster capacity: %d bytes, used: %d bytes, remaining: %d bytes",
			status.Capacity, status.Used, status.Remaining)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received signal %v, shutting down", sig)

	cancel()
	if err := filesystem.Close(); err != nil {
		logger.Error("Failed to close filesystem: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
