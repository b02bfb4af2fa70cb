package sim

import (
	"fmt"
	"io"
	"strings"

	"grid-bot-go/grid"
	"grid-bot-go/logs"
)

// Params 模拟参数，与线上配置同源。
type Params struct {
	Bounds       grid.Bounds
	MaxLevels    int
	MinOrderSize float64
	QuoteReserve float64
	FeeRate      float64 // 一次往返的费率损耗（maker+taker 合计）
}

// DefaultParams FEUSD 网格的默认参数。
func DefaultParams() Params {
	return Params{
		Bounds:       grid.Bounds{Lower: 0.98, Upper: 1.20},
		MaxLevels:    100,
		MinOrderSize: 11,
		QuoteReserve: 0.10,
		FeeRate:      0.0008,
	}
}

// Scenario 一组余额与 mid 价的假设场景。
type Scenario struct {
	Name  string
	Quote float64 // USDC 余额（保留比例在模拟内扣除）
	Base  float64 // 基础币余额
	Mid   float64
}

// DefaultScenarios 覆盖单边持仓、均衡持仓和资金不足的典型场景。
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "1500 FEUSD only @ 1.02", Quote: 0, Base: 1500, Mid: 1.02},
		{Name: "1500 USDC only @ 0.99", Quote: 1500, Base: 0, Mid: 0.99},
		{Name: "100 FEUSD + 10 USDC", Quote: 10, Base: 100, Mid: 1.00},
		{Name: "Balanced $2000 @ 1.00", Quote: 1000, Base: 1000, Mid: 1.00},
		{Name: "Minimum viable $1100", Quote: 550, Base: 550, Mid: 1.00},
		{Name: "Low capital $500", Quote: 250, Base: 250, Mid: 1.00},
	}
}

// Report 单个场景的模拟结果。
type Report struct {
	Scenario Scenario
	Capital  float64
	Viable   bool // 资金是否撑得起至少两档

	LevelCount int
	SpacingPct float64
	Buys       int
	Sells      int
	BuySize    float64 // 买侧单笔数量，0 表示买侧被丢弃
	SellSize   float64

	// 相邻档位一次买卖往返的估算净利（按买侧单量计）
	ProfitPerRoundTrip float64
	LowCoverage        bool // 档数太少，区间覆盖不足
}

// Run 把一个场景过一遍真实的规划代码，不触网络。
func Run(p Params, sc Scenario) Report {
	quoteAvail := sc.Quote * (1 - p.QuoteReserve)
	r := Report{Scenario: sc}

	plan, err := grid.BuildPlan(p.Bounds, sc.Mid, quoteAvail, sc.Base,
		p.MinOrderSize, p.MaxLevels, logs.Nop{})
	r.Capital = plan.Capital
	if err != nil {
		return r
	}

	r.Viable = true
	r.LevelCount = plan.LevelCount
	r.SpacingPct = grid.SpacingPct(plan.Levels)
	r.LowCoverage = plan.LevelCount < 10

	for _, it := range plan.Intents {
		switch it.Side {
		case grid.SideBuy:
			r.Buys++
			r.BuySize = it.Size
		case grid.SideSell:
			r.Sells++
			r.SellSize = it.Size
		}
	}

	size := r.BuySize
	if size == 0 {
		size = r.SellSize
	}
	r.ProfitPerRoundTrip = size * sc.Mid * (r.SpacingPct/100 - p.FeeRate)
	return r
}

// Format 人类可读的场景报告。
func (r Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SCENARIO: %s\n", r.Scenario.Name)
	fmt.Fprintf(&b, "  quote=%.2f base=%.2f mid=%.4f capital=%.2f\n",
		r.Scenario.Quote, r.Scenario.Base, r.Scenario.Mid, r.Capital)

	if !r.Viable {
		fmt.Fprintf(&b, "  INSUFFICIENT CAPITAL (need at least two orders)\n")
		return b.String()
	}

	fmt.Fprintf(&b, "  levels=%d spacing=%.3f%%\n", r.LevelCount, r.SpacingPct)
	fmt.Fprintf(&b, "  buys=%d (size %.2f)  sells=%d (size %.2f)\n",
		r.Buys, r.BuySize, r.Sells, r.SellSize)
	fmt.Fprintf(&b, "  est. profit/round-trip: %.4f\n", r.ProfitPerRoundTrip)
	if r.LowCoverage {
		fmt.Fprintf(&b, "  WARNING: low coverage (%d levels)\n", r.LevelCount)
	}
	return b.String()
}

// RunAll 跑完全部场景并把报告写到 w。
func RunAll(w io.Writer, p Params, scenarios []Scenario) []Report {
	reports := make([]Report, 0, len(scenarios))
	for _, sc := range scenarios {
		r := Run(p, sc)
		reports = append(reports, r)
		fmt.Fprintln(w, r.Format())
	}
	return reports
}
