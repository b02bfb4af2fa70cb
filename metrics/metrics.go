// Package metrics provides Prometheus metrics for the grid bot
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 网格状态
var (
	Capital = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_capital",
		Help: "折算为计价币的总资金",
	})
	CompoundBaseline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_compound_baseline",
		Help: "上次重排时的资金基线",
	})
	ProfitSinceBaseline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_profit_since_baseline",
		Help: "相对基线的浮动利润",
	})
	LevelCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_level_count",
		Help: "当前网格档数",
	})
	MidPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridbot_mid_price",
		Help: "规划使用的 mid 价格",
	})
)

// 周期与订单动作
var (
	PlanCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_plan_cycles_total",
		Help: "规划周期执行次数",
	})
	Replans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_replans_total",
		Help: "加仓重排次数",
	})
	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_cycle_errors_total",
		Help: "跳过的规划周期数（网关错误等）",
	})
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_orders_placed_total",
		Help: "按方向统计的挂单数",
	}, []string{"side"})
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_orders_cancelled_total",
		Help: "撤单数",
	})
	Flips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_flips_total",
		Help: "成交反手单数",
	})
	FillsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_fills_dropped_total",
		Help: "因队列溢出丢弃的成交事件数",
	})
)

// 网关
var (
	WSReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridbot_ws_reconnects_total",
		Help: "WS 重连次数",
	})
	RestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_rest_requests_total",
		Help: "REST 请求数量",
	}, []string{"action"})
	RestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbot_rest_errors_total",
		Help: "REST 错误数量",
	}, []string{"action"})
	RestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridbot_rest_latency_seconds",
		Help:    "REST 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
)

// UpdatePlanMetrics 一次规划周期后集中刷新网格状态指标。
func UpdatePlanMetrics(capital float64, levelCount int, mid, baseline, profit float64) {
	Capital.Set(capital)
	LevelCount.Set(float64(levelCount))
	MidPrice.Set(mid)
	CompoundBaseline.Set(baseline)
	ProfitSinceBaseline.Set(profit)
}

// RecordDiff 记录一次对账产生的撤/挂数量。
func RecordDiff(cancelled int, placedBuys, placedSells int) {
	OrdersCancelled.Add(float64(cancelled))
	OrdersPlaced.WithLabelValues("BUY").Add(float64(placedBuys))
	OrdersPlaced.WithLabelValues("SELL").Add(float64(placedSells))
}

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
