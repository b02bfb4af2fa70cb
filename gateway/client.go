package gateway

import (
	"context"
	"fmt"
	"strconv"

	"grid-bot-go/grid"
)

// Client 组合 REST 与 WS，对上提供引擎需要的完整交易所出入口。
// 资产过滤和计价币保留比例都在这一层处理，核心拿到的余额即是可动用余额。
type Client struct {
	Asset        string
	QuoteCoin    string
	QuoteReserve float64 // 保留不动用的计价币比例 [0,1)

	REST *RESTClient
	WS   *WSClient
}

// MidPrice 返回标的当前 mid 价。
func (c *Client) MidPrice(ctx context.Context) (float64, error) {
	mids, err := c.REST.AllMids(ctx)
	if err != nil {
		return 0, fmt.Errorf("query mids: %w", err)
	}
	mid, ok := mids[c.Asset]
	if !ok || mid <= 0 {
		return 0, fmt.Errorf("no mid price for %s", c.Asset)
	}
	return mid, nil
}

// Balances 返回 (可动用计价币, 基础币)。计价币已扣除保留比例。
func (c *Client) Balances(ctx context.Context) (quote, base float64, err error) {
	balances, err := c.REST.SpotBalances(ctx, c.REST.Signer.Address())
	if err != nil {
		return 0, 0, fmt.Errorf("query balances: %w", err)
	}
	quoteCoin := c.QuoteCoin
	if quoteCoin == "" {
		quoteCoin = "USDC"
	}
	for _, b := range balances {
		switch b.Coin {
		case quoteCoin:
			quote = b.Size * (1 - c.QuoteReserve)
		case c.Asset:
			base = b.Size
		}
	}
	return quote, base, nil
}

// OpenOrders 返回本标的的全部挂单。
func (c *Client) OpenOrders(ctx context.Context) ([]grid.RestingOrder, error) {
	orders, err := c.REST.OpenOrders(ctx, c.REST.Signer.Address())
	if err != nil {
		return nil, fmt.Errorf("query open orders: %w", err)
	}
	resting := make([]grid.RestingOrder, 0, len(orders))
	for _, o := range orders {
		if o.Coin != c.Asset {
			continue
		}
		side := grid.SideSell
		if o.Side == "B" {
			side = grid.SideBuy
		}
		resting = append(resting, grid.RestingOrder{
			ID:    strconv.FormatInt(o.OID, 10),
			Side:  side,
			Price: o.LimitPx,
			Size:  o.Size,
		})
	}
	return resting, nil
}

// CancelOrder 撤掉单个挂单。
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	oid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("bad order id %q: %w", id, err)
	}
	return c.REST.CancelOrders(ctx, []CancelRequest{{Coin: c.Asset, OID: oid}})
}

// CancelOrders 批量撤单，空集是 no-op。
func (c *Client) CancelOrders(ctx context.Context, ids []string) error {
	cancels := make([]CancelRequest, 0, len(ids))
	for _, id := range ids {
		oid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return fmt.Errorf("bad order id %q: %w", id, err)
		}
		cancels = append(cancels, CancelRequest{Coin: c.Asset, OID: oid})
	}
	return c.REST.CancelOrders(ctx, cancels)
}

// CancelAllOrders 撤掉本标的全部挂单，尽力而为。
func (c *Client) CancelAllOrders(ctx context.Context) error {
	resting, err := c.OpenOrders(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(resting))
	for _, o := range resting {
		ids = append(ids, o.ID)
	}
	return c.CancelOrders(ctx, ids)
}

// PlaceOrder 挂单个订单。
func (c *Client) PlaceOrder(ctx context.Context, it grid.OrderIntent, postOnly bool) error {
	return c.PlaceOrdersBatch(ctx, []grid.OrderIntent{it}, postOnly)
}

// PlaceOrdersBatch 批量挂单，空集是 no-op。
func (c *Client) PlaceOrdersBatch(ctx context.Context, intents []grid.OrderIntent, postOnly bool) error {
	if len(intents) == 0 {
		return nil
	}
	orders := make([]OrderRequest, 0, len(intents))
	for _, it := range intents {
		orders = append(orders, OrderRequest{
			Coin:     c.Asset,
			IsBuy:    it.Side == grid.SideBuy,
			Size:     it.Size,
			LimitPx:  grid.PriceKey(it.Price),
			PostOnly: postOnly,
		})
	}
	_, err := c.REST.PlaceOrders(ctx, orders)
	return err
}

// SubscribeFills 后台运行 WS 读取循环，把成交事件回调给引擎。
func (c *Client) SubscribeFills(ctx context.Context, onFill func(grid.Fill)) error {
	if c.WS == nil {
		return fmt.Errorf("ws client not set")
	}
	go func() {
		_ = c.WS.Run(ctx, onFill)
	}()
	return nil
}
