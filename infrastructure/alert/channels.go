package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"grid-bot-go/infrastructure/logger"
)

// LogChannel 把告警写进主日志流，永远配置为第一个通道。
type LogChannel struct {
	log *logger.Logger
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

// Send 按级别落日志
func (c *LogChannel) Send(a Alert) error {
	fields := []zap.Field{
		zap.String("level", a.Level),
		zap.Time("alert_ts", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	switch a.Level {
	case "WARNING":
		c.log.Warn(a.Message, fields...)
	default:
		c.log.Error(a.Message, fields...)
	}
	return nil
}

// Name 返回通道名称
func (c *LogChannel) Name() string { return "log" }

// WebhookChannel 把告警 POST 到外部 webhook（值班通知等）。
type WebhookChannel struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookChannel 创建 webhook 通道
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Send POST JSON 到 webhook
func (c *WebhookChannel) Send(a Alert) error {
	payload, err := json.Marshal(map[string]interface{}{
		"level":   a.Level,
		"message": a.Message,
		"ts":      a.Timestamp.UTC().Format(time.RFC3339),
		"fields":  a.Fields,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	resp, err := c.HTTPClient.Post(c.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

// Name 返回通道名称
func (c *WebhookChannel) Name() string { return "webhook" }
