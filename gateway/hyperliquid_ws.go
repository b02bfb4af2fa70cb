package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"grid-bot-go/grid"
	"grid-bot-go/metrics"
)

// HyperliquidMainnetWS 默认 WS 入口。
const HyperliquidMainnetWS = "wss://api.hyperliquid.xyz/ws"

// WSClient 订阅用户成交流并在断开后自动重连。
// 只做连接、订阅、读取；解析交给 ParseFills。
type WSClient struct {
	Endpoint string
	User     string
	Asset    string
	Dialer   *websocket.Dialer

	onConnect    func()
	onDisconnect func(error)
}

func NewWSClient(endpoint, user, asset string) *WSClient {
	if endpoint == "" {
		endpoint = HyperliquidMainnetWS
	}
	return &WSClient{
		Endpoint: endpoint,
		User:     user,
		Asset:    asset,
		Dialer:   websocket.DefaultDialer,
	}
}

// OnConnect 注册连接成功回调。
func (w *WSClient) OnConnect(fn func()) { w.onConnect = fn }

// OnDisconnect 注册断开回调。
func (w *WSClient) OnDisconnect(fn func(error)) { w.onDisconnect = fn }

// Run 阻塞运行：断开后按指数退避重连，直到 ctx 结束。
func (w *WSClient) Run(ctx context.Context, onFill func(grid.Fill)) error {
	backoff := time.Second
	for {
		err := w.runOnce(ctx, onFill)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if w.onDisconnect != nil {
			w.onDisconnect(err)
		}
		metrics.WSReconnects.Inc()

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (w *WSClient) runOnce(ctx context.Context, onFill func(grid.Fill)) error {
	if w.User == "" {
		return fmt.Errorf("user address required")
	}
	conn, _, err := w.Dialer.DialContext(ctx, w.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// ctx 结束时踢掉阻塞中的 ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for _, subType := range []string{"userEvents", "orderUpdates"} {
		sub := map[string]any{
			"method":       "subscribe",
			"subscription": map[string]string{"type": subType, "user": w.User},
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", subType, err)
		}
	}
	if w.onConnect != nil {
		w.onConnect()
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fills, err := ParseFills(message, w.Asset)
		if err != nil {
			// 单条消息解析失败不值得断线
			continue
		}
		for _, f := range fills {
			onFill(f)
		}
	}
}
