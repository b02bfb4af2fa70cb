package gateway

import (
	"encoding/json"
	"strconv"

	"grid-bot-go/grid"
)

// wsMessage 对应 Hyperliquid WS 的 channel 包装。
type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type orderUpdate struct {
	Status string `json:"status"`
	Side   string `json:"side"` // "B" 买 / "A" 卖
	Size   string `json:"sz"`
	Price  string `json:"price"`
	Coin   string `json:"coin"`
}

// ParseFills 从 orderUpdates / userEvents 消息里提取已成交事件。
// 其它 channel（订阅确认、心跳）返回空集而不是错误。
func ParseFills(raw []byte, asset string) ([]grid.Fill, error) {
	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Channel != "orderUpdates" && msg.Channel != "userEvents" {
		return nil, nil
	}

	var data struct {
		Updates []orderUpdate `json:"updates"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, err
	}

	var fills []grid.Fill
	for _, u := range data.Updates {
		if u.Status != "filled" {
			continue
		}
		if asset != "" && u.Coin != "" && u.Coin != asset {
			continue
		}
		price, err := strconv.ParseFloat(u.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(u.Size, 64)
		if err != nil {
			continue
		}
		side := grid.SideSell
		if u.Side == "B" {
			side = grid.SideBuy
		}
		fills = append(fills, grid.Fill{Side: side, Price: price, Size: size})
	}
	return fills, nil
}
