package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"grid-bot-go/metrics"
)

// HyperliquidMainnetURL 默认 REST 入口。
const HyperliquidMainnetURL = "https://api.hyperliquid.xyz"

// RESTClient 一个可签名的简化客户端；默认不发起真实网络调用，HTTPClient 可注入 httptest。
type RESTClient struct {
	BaseURL    string
	Signer     *Signer
	HTTPClient *http.Client
	Limiter    RateLimiter
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// Balance 现货余额条目。
type Balance struct {
	Coin string  `json:"coin"`
	Size float64 `json:"sz,string"`
}

// OpenOrder 交易所视角的挂单。
type OpenOrder struct {
	Coin    string  `json:"coin"`
	OID     int64   `json:"oid"`
	Side    string  `json:"side"` // "B" 买 / "A" 卖
	LimitPx float64 `json:"limitPx,string"`
	Size    float64 `json:"sz,string"`
}

// OrderRequest 下单请求（bulk 形式，单笔也是长度 1 的 bulk）。
type OrderRequest struct {
	Coin     string  `json:"coin"`
	IsBuy    bool    `json:"is_buy"`
	Size     float64 `json:"sz"`
	LimitPx  float64 `json:"limit_px"`
	PostOnly bool    `json:"-"`
	Cloid    string  `json:"cloid,omitempty"`
}

// MarshalJSON 把 PostOnly 展开成交易所的 order_type 结构。
func (r OrderRequest) MarshalJSON() ([]byte, error) {
	type limit struct {
		Tif      string `json:"tif"`
		PostOnly bool   `json:"postOnly"`
	}
	return json.Marshal(struct {
		Coin      string  `json:"coin"`
		IsBuy     bool    `json:"is_buy"`
		Size      float64 `json:"sz"`
		LimitPx   float64 `json:"limit_px"`
		OrderType struct {
			Limit limit `json:"limit"`
		} `json:"order_type"`
		ReduceOnly bool   `json:"reduce_only"`
		Cloid      string `json:"cloid,omitempty"`
	}{
		Coin:    r.Coin,
		IsBuy:   r.IsBuy,
		Size:    r.Size,
		LimitPx: r.LimitPx,
		OrderType: struct {
			Limit limit `json:"limit"`
		}{Limit: limit{Tif: "Gtc", PostOnly: r.PostOnly}},
		Cloid: r.Cloid,
	})
}

// CancelRequest 撤单请求。
type CancelRequest struct {
	Coin string `json:"coin"`
	OID  int64  `json:"oid"`
}

// AllMids 查询全市场 mid 价。
func (c *RESTClient) AllMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	if err := c.postInfo(ctx, "allMids", map[string]any{"type": "allMids"}, &raw); err != nil {
		return nil, err
	}
	mids := make(map[string]float64, len(raw))
	for coin, s := range raw {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			mids[coin] = v
		}
	}
	return mids, nil
}

// SpotBalances 查询现货余额。
func (c *RESTClient) SpotBalances(ctx context.Context, user string) ([]Balance, error) {
	var resp struct {
		Balances []Balance `json:"balances"`
	}
	body := map[string]any{"type": "spotClearinghouseState", "user": user}
	if err := c.postInfo(ctx, "balances", body, &resp); err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

// OpenOrders 查询用户全部挂单。
func (c *RESTClient) OpenOrders(ctx context.Context, user string) ([]OpenOrder, error) {
	var orders []OpenOrder
	body := map[string]any{"type": "openOrders", "user": user}
	if err := c.postInfo(ctx, "openOrders", body, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// PlaceOrders 批量下单，返回 resting oid（与请求同序）。空请求直接返回。
func (c *RESTClient) PlaceOrders(ctx context.Context, orders []OrderRequest) ([]int64, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	for i := range orders {
		if orders[i].Cloid == "" {
			orders[i].Cloid = uuid.NewString()
		}
	}
	action := map[string]any{"type": "order", "orders": orders}

	var resp struct {
		Status   string `json:"status"`
		Response struct {
			Data struct {
				Statuses []struct {
					Resting struct {
						OID int64 `json:"oid"`
					} `json:"resting"`
					Error string `json:"error"`
				} `json:"statuses"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := c.postExchange(ctx, "place", action, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("place rejected: status %q", resp.Status)
	}
	oids := make([]int64, 0, len(resp.Response.Data.Statuses))
	for _, st := range resp.Response.Data.Statuses {
		if st.Error != "" {
			return oids, fmt.Errorf("order rejected: %s", st.Error)
		}
		oids = append(oids, st.Resting.OID)
	}
	return oids, nil
}

// CancelOrders 批量撤单。空请求直接返回。
func (c *RESTClient) CancelOrders(ctx context.Context, cancels []CancelRequest) error {
	if len(cancels) == 0 {
		return nil
	}
	action := map[string]any{"type": "cancel", "cancels": cancels}
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.postExchange(ctx, "cancel", action, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("cancel rejected: status %q", resp.Status)
	}
	return nil
}

func (c *RESTClient) postInfo(ctx context.Context, action string, body, out any) error {
	return c.post(ctx, action, "/info", body, out)
}

// postExchange 给 action 附上 nonce 和签名后提交。
func (c *RESTClient) postExchange(ctx context.Context, label string, action, out any) error {
	if c.Signer == nil {
		return fmt.Errorf("signer not set")
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	nonce := time.Now().UnixMilli()
	sig, err := c.Signer.Sign(raw, nonce)
	if err != nil {
		return err
	}
	body := map[string]any{
		"action":    json.RawMessage(raw),
		"nonce":     nonce,
		"signature": sig,
	}
	return c.post(ctx, label, "/exchange", body, out)
}

func (c *RESTClient) post(ctx context.Context, label, path string, body, out any) error {
	if c == nil || c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	metrics.RestRequests.WithLabelValues(label).Inc()
	defer func() {
		metrics.RestLatency.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.RestErrors.WithLabelValues(label).Inc()
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.RestErrors.WithLabelValues(label).Inc()
		return fmt.Errorf("%s status %d", label, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.RestErrors.WithLabelValues(label).Inc()
		return fmt.Errorf("decode %s response: %w", label, err)
	}
	return nil
}
