package grid

// FlipIntent 成交后生成反手单：相反方向、同价、同量。
// 买单在 P 成交立刻在 P 挂卖（利润在下一次更高价位的成交兑现），反之亦然。
// 反手单不做 post-only：价格若已越过 P，post-only 会被拒单导致反手永远挂不上，
// 宁可吃一次 taker 费也要保证订单进簿。
func FlipIntent(f Fill) OrderIntent {
	return OrderIntent{
		Side:  f.Side.Opposite(),
		Price: f.Price,
		Size:  f.Size,
	}
}
