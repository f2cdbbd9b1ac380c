// voxd is the vox prismatic daemon: it runs the pipeline worker pools, the
// scheduled-post processor, and the IPC server the CLI talks to.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := ""
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		configPath = os.Args[2]
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "voxd.log")
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "voxd*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.DataDir, "voxd.pid")
	if err := writePIDFile(pidPath); err != nil {
		log.Fatalf("write pid file: %v", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}
	contents, err := content.Open(cfg)
	if err != nil {
		store.Close()
		logger.Error("open content store", logging.Error(err))
		os.Exit(1)
	}
	schedules, err := scheduler.Open(cfg)
	if err != nil {
		store.Close()
		contents.Close()
		logger.Error("open scheduler store", logging.Error(err))
		os.Exit(1)
	}

	d, err := buildDaemon(cfg, logger, store, contents, schedules)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Warn("daemon start", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("voxd shutting down")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
