package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	appsvc "merge-service/ddd/application/app"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
	"merge-service/pkg/manager"
	"merge-service/pkg/observability"
	"merge-service/pkg/repository"
	"merge-service/pkg/task"

	_ "merge-service/ddd/adapter/component"
	_ "merge-service/ddd/infrastructure/worker"

	// 导入资源包以触发init函数
	_ "merge-service/internal/resource"
)

// 独立Worker进程：不起HTTP服务，只消费合并队列和Kafka请求
func main() {
	observability.StartProfiling("merge-service-worker")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.dev.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	defer logService.Close()

	logger.Infof("Merge worker starting worker_id=%s", cfg.Worker.WorkerID)

	ffmpegBin := cfg.Merge.FFmpeg.BinaryPath
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found binary=%s error=%s", ffmpegBin, err.Error()))
	}

	manager.MustInitResources()
	defer manager.CloseResources()

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize database error=%v", err))
	}
	defer db.Close()

	deps := &manager.Dependencies{
		DB:               db.Self,
		Config:           cfg,
		UploadAppService: appsvc.DefaultUploadApp(),
		MergeAppService:  appsvc.DefaultMergeApp(),
	}

	manager.MustInitServices(deps)
	manager.MustInitComponents(deps)

	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Merge worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, stopping worker...")
	task.StopAll()
	manager.Shutdown()
	logger.Infof("Merge worker exited safely")
}
