package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	appsvc "merge-service/ddd/application/app"
	cqe "merge-service/ddd/application/cqe"
	"merge-service/pkg/config"
	pkgkafka "merge-service/pkg/kafka"
	"merge-service/pkg/logger"
	"merge-service/pkg/manager"
)

func init() {
	manager.RegisterComponentPlugin(&MergeRequestConsumerPlugin{})
}

// MergeRequestConsumerPlugin 订阅合并请求主题，上游服务可绕过HTTP直接投递
type MergeRequestConsumerPlugin struct{}

func (p *MergeRequestConsumerPlugin) Name() string { return "mergeRequestConsumer" }

func (p *MergeRequestConsumerPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	var app appsvc.MergeApp
	if deps != nil {
		if v, ok := deps.MergeAppService.(appsvc.MergeApp); ok {
			app = v
		}
	}
	if app == nil {
		app = appsvc.DefaultMergeApp()
	}

	cfg := config.GetGlobalConfig()
	if deps != nil && deps.Config != nil {
		cfg = deps.Config
	}
	return &mergeRequestConsumer{app: app, cfg: cfg}
}

type mergeRequestConsumer struct {
	app    appsvc.MergeApp
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *mergeRequestConsumer) Start() error {
	if c.cfg == nil || !c.cfg.Kafka.Enabled {
		logger.Info("Kafka disabled, merge request consumer not started", nil)
		return nil
	}

	topic := c.cfg.Kafka.Topics.MergeRequests
	groupID := c.cfg.Kafka.GroupID

	c.ctx, c.cancel = context.WithCancel(context.Background())
	reader := pkgkafka.DefaultClient().Reader(topic, groupID)
	go func() {
		defer reader.Close()
		logger.Infof("Kafka consumer started topic=%s group=%s", topic, groupID)
		for {
			msg, err := reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debug("Kafka reader EOF")
				} else {
					logger.Warnf("Kafka read error error=%s", err.Error())
				}
				continue
			}
			var m struct {
				MergeSessionID string `json:"merge_session_id"`
				UserUUID       string `json:"user_uuid"`
				QualityPreset  string `json:"quality_preset"`
			}
			if err := json.Unmarshal(msg.Value, &m); err != nil {
				logger.Warnf("Kafka message unmarshal error error=%s", err.Error())
				continue
			}
			logger.Infof("Kafka merge request received merge_session_id=%s user_uuid=%s", m.MergeSessionID, m.UserUUID)
			req := &cqe.InitiateMergeReq{
				MergeSessionID: m.MergeSessionID,
				UserUUID:       m.UserUUID,
				QualityPreset:  m.QualityPreset,
			}
			if _, err := c.app.InitiateMerge(context.Background(), req); err != nil {
				logger.Warnf("InitiateMerge failed error=%s merge_session_id=%s", err.Error(), m.MergeSessionID)
			}
		}
	}()
	return nil
}

func (c *mergeRequestConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
func (c *mergeRequestConsumer) GetName() string { return "mergeRequestConsumer" }
