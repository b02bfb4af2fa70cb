package grid

import "math"

// Side 订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回相反方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Bounds 网格价格上下边界，配置加载后不可变。
type Bounds struct {
	Lower float64
	Upper float64
}

// OrderIntent 期望挂出的订单（尚未提交交易所）。Size 以基础币计。
type OrderIntent struct {
	Side  Side
	Price float64
	Size  float64
}

// RestingOrder 交易所当前挂着的订单，核心只读，不直接修改。
type RestingOrder struct {
	ID    string
	Side  Side
	Price float64
	Size  float64
}

// Fill 成交事件。
type Fill struct {
	Side  Side
	Price float64
	Size  float64
}

// priceScale 价格归一化精度：保留 4 位小数后才能作为 map key 使用。
const priceScale = 1e4

// PriceKey 把浮点价格归一化为可比较的档位 key。
// 网格价由 Pow 计算得出，不归一化直接做 map key 会导致同档位对不上。
func PriceKey(p float64) float64 {
	return math.Round(p*priceScale) / priceScale
}
