package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	app "merge-service/ddd/application/app"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
	"merge-service/pkg/manager"
	"merge-service/pkg/middleware"
	"merge-service/pkg/registry"
	"merge-service/pkg/repository"
	"merge-service/pkg/task"

	"github.com/gin-gonic/gin"

	_ "merge-service/ddd/adapter/component"
	_ "merge-service/ddd/adapter/http"
	_ "merge-service/ddd/infrastructure/worker"

	// 导入资源包以触发init函数
	_ "merge-service/internal/resource"
)

func Run() {
	// 先使用标准输出确保能看到日志
	fmt.Println("[STARTUP] Starting merge service...")

	// 加载配置
	fmt.Println("[STARTUP] Loading config file...")
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// 设置全局配置（必须在资源管理器初始化之前）
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	// 立即初始化日志服务（确保所有后续组件都能使用正确的日志器）
	fmt.Println("[STARTUP] Initializing logger...")
	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	fmt.Println("[STARTUP] Logger initialized")

	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	logger.Infof("Merge service starting version=%s", "1.0.0")

	// 检查 FFmpeg/FFprobe 是否可用，直接在启动阶段失败
	ffmpegBin := cfg.Merge.FFmpeg.BinaryPath
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found, please install or set merge.ffmpeg.binary_path binary=%s error=%s", ffmpegBin, err.Error()))
	}
	probeBin := cfg.Merge.FFmpeg.ProbePath
	if strings.TrimSpace(probeBin) == "" {
		probeBin = "ffprobe"
	}
	if _, err := exec.LookPath(probeBin); err != nil {
		logger.Fatal(fmt.Sprintf("FFprobe binary not found, please install or set merge.ffmpeg.probe_path binary=%s error=%s", probeBin, err.Error()))
	}

	// 资源管理器初始化
	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	// 初始化数据库（用于依赖注入）
	logger.Infof("Initializing database connection...")
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize database error=%v", err))
	}
	defer db.Close()
	logger.Infof("Database connected")

	// 初始化应用服务
	logger.Infof("Initializing application services...")
	uploadAppService := app.DefaultUploadApp()
	mergeAppService := app.DefaultMergeApp()
	logger.Infof("Application services initialized")

	// 创建依赖注入容器
	deps := &manager.Dependencies{
		DB:               db.Self,
		Config:           cfg,
		UploadAppService: uploadAppService,
		MergeAppService:  mergeAppService,
	}

	// 初始化所有服务
	logger.Infof("Initializing services...")
	manager.MustInitServices(deps)
	logger.Infof("All services initialized")

	// 初始化所有组件
	logger.Infof("Initializing components...")
	manager.MustInitComponents(deps)
	logger.Infof("All components initialized")

	// 启动后台任务（Worker、消费者、清理任务）
	logger.Infof("Starting background tasks...")
	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Background tasks started")

	// 创建Gin引擎
	logger.Infof("Creating HTTP routes...")
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	router.Use(middleware.RequestContextMiddleware())
	router.Use(middleware.JWTAuthMiddleware(&cfg.JWT))

	// 添加健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "merge-service",
			"timestamp": time.Now().Unix(),
		})
	})

	// 注册所有路由
	logger.Infof("Registering routes...")
	manager.RegisterAllRoutes(router)
	logger.Infof("Routes registered")

	// 启动HTTP服务器
	port := getEnv("PORT", fmt.Sprintf("%d", cfg.Server.Port))
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()

	logger.Infof("HTTP server started port=%s service=%s health_url=%s api_url=%s", port, "merge-service", fmt.Sprintf("http://localhost:%s/health", port), fmt.Sprintf("http://localhost:%s/api/v1", port))

	// 服务注册（可选）
	var serviceRegistry *registry.ServiceRegistry
	if cfg.ServiceRegistry.Enabled {
		registerHost := cfg.ServiceRegistry.RegisterHost
		if registerHost == "" {
			registerHost = cfg.Server.Host
		}
		serviceRegistry, err = registry.NewServiceRegistry(
			registry.RegistryConfig{
				Endpoints:   cfg.ServiceRegistry.Endpoints,
				DialTimeout: 5 * time.Second,
			},
			registry.ServiceConfig{
				ServiceName:     cfg.ServiceRegistry.ServiceName,
				ServiceID:       cfg.ServiceRegistry.ServiceID,
				TTL:             cfg.ServiceRegistry.TTL,
				RefreshInterval: cfg.ServiceRegistry.RefreshInterval,
			},
			fmt.Sprintf("%s:%s", registerHost, port),
		)
		if err != nil {
			logger.Errorf("Failed to create service registry error=%v", err)
		} else if err := serviceRegistry.Register(); err != nil {
			logger.Errorf("Failed to register service error=%v", err)
		} else {
			logger.Infof("Service registered name=%s", cfg.ServiceRegistry.ServiceName)
		}
	}

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	// 先从注册中心摘除
	if serviceRegistry != nil {
		if err := serviceRegistry.Deregister(); err != nil {
			logger.Warnf("Failed to deregister service error=%v", err)
		}
	}

	// 停止后台任务
	logger.Infof("Stopping background tasks...")
	task.StopAll()

	// 关闭所有组件
	logger.Infof("Shutting down components...")
	manager.Shutdown()
	logger.Infof("Components closed")

	// 设置关闭超时
	grace := cfg.Worker.ShutdownGracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("Server forced to close error=%v", err))
	}

	logger.Infof("Server exited safely")

	// 关闭日志服务
	if logService != nil {
		logService.Close()
	}

	fmt.Println("[SHUTDOWN] Merge service exited safely")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
