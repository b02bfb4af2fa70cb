package main

import (
	"flag"
	"fmt"
	"os"

	"grid-bot-go/grid"
	"grid-bot-go/sim"
)

// 不触网络的网格场景推演：用真实规划代码检查一组余额能铺出什么样的网格。
func main() {
	lower := flag.Float64("lower", 0.98, "网格下界")
	upper := flag.Float64("upper", 1.20, "网格上界")
	maxLevels := flag.Int("maxLevels", 100, "最大档数")
	minOrder := flag.Float64("minOrder", 11, "单笔最小数量")
	reserve := flag.Float64("reserve", 0.10, "计价币保留比例")
	quote := flag.Float64("quote", -1, "自定义场景：计价币余额")
	base := flag.Float64("base", -1, "自定义场景：基础币余额")
	mid := flag.Float64("mid", 1.0, "自定义场景：mid 价")
	flag.Parse()

	params := sim.Params{
		Bounds:       grid.Bounds{Lower: *lower, Upper: *upper},
		MaxLevels:    *maxLevels,
		MinOrderSize: *minOrder,
		QuoteReserve: *reserve,
		FeeRate:      sim.DefaultParams().FeeRate,
	}

	scenarios := sim.DefaultScenarios()
	if *quote >= 0 && *base >= 0 {
		scenarios = []sim.Scenario{{
			Name:  fmt.Sprintf("custom quote=%.2f base=%.2f @ %.4f", *quote, *base, *mid),
			Quote: *quote,
			Base:  *base,
			Mid:   *mid,
		}}
	}

	fmt.Println("############################################")
	fmt.Println("# GRID SCENARIO SIMULATOR")
	fmt.Println("############################################")
	sim.RunAll(os.Stdout, params, scenarios)
}
