package component

import (
	"context"
	"time"

	appsvc "merge-service/ddd/application/app"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
	"merge-service/pkg/manager"
	"merge-service/pkg/task"
)

func init() {
	manager.RegisterComponentPlugin(&ExpiredUploadCleanupPlugin{})
}

// ExpiredUploadCleanupPlugin 周期性回收过期上传会话及其分片
type ExpiredUploadCleanupPlugin struct{}

func (p *ExpiredUploadCleanupPlugin) Name() string { return "expiredUploadCleanup" }

func (p *ExpiredUploadCleanupPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	var app appsvc.UploadApp
	if deps != nil {
		if v, ok := deps.UploadAppService.(appsvc.UploadApp); ok {
			app = v
		}
	}
	if app == nil {
		app = appsvc.DefaultUploadApp()
	}

	interval := time.Hour
	cfg := config.GetGlobalConfig()
	if deps != nil && deps.Config != nil {
		cfg = deps.Config
	}
	if cfg != nil && cfg.Upload.CleanupInterval > 0 {
		interval = cfg.Upload.CleanupInterval
	}
	return &expiredUploadCleanup{app: app, interval: interval}
}

type expiredUploadCleanup struct {
	app      appsvc.UploadApp
	interval time.Duration
}

func (c *expiredUploadCleanup) Start() error {
	task.Register(&cleanupTask{app: c.app, interval: c.interval})
	logger.Infof("Expired upload cleanup registered interval=%s", c.interval)
	return nil
}

func (c *expiredUploadCleanup) Stop() error { return nil }

func (c *expiredUploadCleanup) GetName() string { return "expiredUploadCleanup" }

type cleanupTask struct {
	app      appsvc.UploadApp
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func (t *cleanupTask) Name() string { return "expiredUploadCleanup" }

func (t *cleanupTask) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				cleaned, err := t.app.CleanupExpiredSessions(runCtx)
				if err != nil {
					logger.Warnf("expired upload cleanup failed error=%s", err.Error())
					continue
				}
				if cleaned > 0 {
					logger.Infof("expired upload sessions cleaned count=%d", cleaned)
				}
			}
		}
	}()
	return nil
}

func (t *cleanupTask) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.done != nil {
		<-t.done
	}
	return nil
}
