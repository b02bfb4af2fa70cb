package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"grid-bot-go/grid"
	"grid-bot-go/infrastructure/alert"
	"grid-bot-go/infrastructure/logger"
	"grid-bot-go/metrics"
	"grid-bot-go/posttrade"
)

// State 规划器状态
type State int

const (
	// StateStopped 未运行
	StateStopped State = iota
	// StateInitializing 启动中：首次全量建网格
	StateInitializing
	// StateRunning 运行中
	StateRunning
	// StateStopping 停止中：尽力撤单
	StateStopping
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// ExchangeGateway 规划器对交易所的全部依赖，由外部注入。
type ExchangeGateway interface {
	MidPrice(ctx context.Context) (float64, error)
	// Balances 返回 (可动用计价币, 基础币)，保留比例已在网关内扣除。
	Balances(ctx context.Context) (quote, base float64, err error)
	OpenOrders(ctx context.Context) ([]grid.RestingOrder, error)
	CancelOrders(ctx context.Context, ids []string) error
	CancelAllOrders(ctx context.Context) error
	PlaceOrder(ctx context.Context, it grid.OrderIntent, postOnly bool) error
	PlaceOrdersBatch(ctx context.Context, intents []grid.OrderIntent, postOnly bool) error
	SubscribeFills(ctx context.Context, onFill func(grid.Fill)) error
}

// Config 规划器配置
type Config struct {
	Asset             string
	Bounds            grid.Bounds
	MaxLevels         int
	MinOrderSize      float64
	CompoundThreshold float64
	PlanInterval      time.Duration // 规划周期
	FillQueueSize     int           // 成交事件队列容量，满了丢最旧
}

// Components 规划器依赖组件
type Components struct {
	Gateway ExchangeGateway
	Logger  *logger.Logger
	Alerts  *alert.Manager    // 可选
	Fills   *posttrade.Ledger // 可选，成交台账
}

// GridPlanner 网格规划器：定时对账 + 成交反手的单 goroutine 事件循环。
// 所有会改变交易所挂单的调用都出自同一个 goroutine，撤/挂天然串行，
// 不存在定时器和成交回调并发互踩的窗口。
type GridPlanner struct {
	config  Config
	gateway ExchangeGateway
	logger  *logger.Logger
	alerts  *alert.Manager
	fills   *posttrade.Ledger

	compound   *grid.CompoundTracker
	reconciler *grid.Reconciler

	// 状态
	state State
	mu    sync.RWMutex

	// WS 回调把成交塞进来，事件循环慢慢消费
	fillChan chan grid.Fill

	// 控制通道
	stopChan chan struct{}
	doneChan chan struct{}

	// 统计信息
	stats Statistics

	// 连续失败周期数，跨越阈值时告警
	failStreak int
}

// Statistics 规划器统计信息
type Statistics struct {
	StartTime     time.Time
	TotalCycles   int64
	TotalReplans  int64
	TotalFlips    int64
	TotalErrors   int64
	DroppedFills  int64
	LastCycleTime time.Time
	mu            sync.RWMutex
}

// failStreakAlertAt 连续失败多少个周期后发告警。
const failStreakAlertAt = 3

// New 创建网格规划器
func New(cfg Config, components Components) (*GridPlanner, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := validateComponents(components); err != nil {
		return nil, fmt.Errorf("invalid components: %w", err)
	}

	if cfg.PlanInterval <= 0 {
		cfg.PlanInterval = 5 * time.Minute
	}
	if cfg.FillQueueSize <= 0 {
		cfg.FillQueueSize = 64
	}

	return &GridPlanner{
		config:     cfg,
		gateway:    components.Gateway,
		logger:     components.Logger,
		alerts:     components.Alerts,
		fills:      components.Fills,
		compound:   grid.NewCompoundTracker(cfg.CompoundThreshold),
		reconciler: grid.NewReconciler(),
		state:      StateStopped,
		fillChan:   make(chan grid.Fill, cfg.FillQueueSize),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
	}, nil
}

// Start 启动规划器：订阅成交流、全量建网格、进入事件循环。
func (p *GridPlanner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		return fmt.Errorf("planner already started (state: %s)", p.state)
	}
	p.state = StateInitializing
	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	p.stats.StartTime = time.Now()
	p.mu.Unlock()

	p.logger.Info("Grid planner starting",
		zap.String("asset", p.config.Asset),
		zap.Float64("lower", p.config.Bounds.Lower),
		zap.Float64("upper", p.config.Bounds.Upper),
		zap.Int("max_levels", p.config.MaxLevels),
		zap.Duration("plan_interval", p.config.PlanInterval))

	// 先订阅成交流：初始化挂单瞬间的成交也不能漏
	if err := p.gateway.SubscribeFills(ctx, p.enqueueFill); err != nil {
		p.setState(StateStopped)
		return fmt.Errorf("subscribe fills: %w", err)
	}

	// 启动即全量重建，交易所上的陈旧挂单一律归位
	if err := p.runCycle(ctx, true); err != nil {
		p.setState(StateStopped)
		return fmt.Errorf("initial grid build: %w", err)
	}

	p.setState(StateRunning)
	go p.run(ctx)

	p.logger.Info("Grid planner started")
	return nil
}

// Stop 停止规划器并尽力撤掉全部挂单。
func (p *GridPlanner) Stop() error {
	p.mu.Lock()
	if p.state != StateRunning && p.state != StateInitializing {
		p.mu.Unlock()
		return fmt.Errorf("planner not running (state: %s)", p.state)
	}
	p.state = StateStopping
	p.mu.Unlock()

	p.logger.Info("Grid planner stopping...")

	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}

	select {
	case <-p.doneChan:
	case <-time.After(10 * time.Second):
		p.logger.Warn("Timeout waiting for planner loop to exit")
	}

	// 尽力而为：撤单失败只记日志，停止流程不中断
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := p.gateway.CancelAllOrders(ctx); err != nil {
		p.logger.Error("Failed to cancel orders on shutdown", zap.Error(err))
	}

	if p.fills != nil {
		s := p.fills.Stats()
		p.logger.Info("Fill ledger summary",
			zap.Int("fills", s.TotalFills),
			zap.Float64("buy_vwap", s.BuyVWAP),
			zap.Float64("sell_vwap", s.SellVWAP),
			zap.Float64("realized_spread", s.RealizedSpread))
	}

	p.setState(StateStopped)
	p.logger.Info("Grid planner stopped")
	return nil
}

// run 主事件循环：同一 goroutine 消费定时器与成交队列。
func (p *GridPlanner) run(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.config.PlanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context done, stopping planner loop")
			return

		case <-p.stopChan:
			p.logger.Info("Stop signal received")
			return

		case <-ticker.C:
			p.onTick(ctx)

		case f := <-p.fillChan:
			p.onFill(ctx, f)
		}
	}
}

// enqueueFill WS 回调入口。队列满时丢最旧的一条：
// 反手单丢了会少赚一个档差，但挤爆内存或阻塞 WS 读循环代价更大，
// 丢掉的挂单缺口下一次全量重排会补上。
func (p *GridPlanner) enqueueFill(f grid.Fill) {
	for {
		select {
		case p.fillChan <- f:
			return
		default:
		}
		select {
		case dropped := <-p.fillChan:
			p.stats.mu.Lock()
			p.stats.DroppedFills++
			p.stats.mu.Unlock()
			metrics.FillsDropped.Inc()
			p.logger.LogCycle("fill_dropped", map[string]interface{}{
				"queueSize": cap(p.fillChan),
				"side":      string(dropped.Side),
				"price":     dropped.Price,
			})
		default:
		}
	}
}

// onTick 周期对账。一次周期失败只跳过本周期，连续失败才升级告警。
func (p *GridPlanner) onTick(ctx context.Context) {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()
	if state != StateRunning {
		return
	}

	if err := p.runCycle(ctx, false); err != nil {
		p.recordError()
		metrics.CycleErrors.Inc()
		p.logger.LogError(err, map[string]interface{}{"event": "cycle_error"})

		p.failStreak++
		if p.failStreak == failStreakAlertAt && p.alerts != nil {
			_ = p.alerts.SendError("grid cycle failing repeatedly", map[string]interface{}{
				"asset":  p.config.Asset,
				"streak": p.failStreak,
			})
		}
		return
	}
	p.failStreak = 0
}

// runCycle 一次完整规划周期：读市场 -> 算期望 -> 对账 -> 执行 diff。
// forceFull 为 true 时（启动）无条件全量重建，否则由复利阈值决定。
func (p *GridPlanner) runCycle(ctx context.Context, forceFull bool) error {
	p.stats.mu.Lock()
	p.stats.TotalCycles++
	p.stats.LastCycleTime = time.Now()
	p.stats.mu.Unlock()
	metrics.PlanCycles.Inc()

	mid, err := p.gateway.MidPrice(ctx)
	if err != nil {
		return fmt.Errorf("mid price: %w", err)
	}
	quote, base, err := p.gateway.Balances(ctx)
	if err != nil {
		return fmt.Errorf("balances: %w", err)
	}
	resting, err := p.gateway.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("open orders: %w", err)
	}

	plan, err := grid.BuildPlan(p.config.Bounds, mid, quote, base,
		p.config.MinOrderSize, p.config.MaxLevels, p.logger.KV())
	if errors.Is(err, grid.ErrInsufficientCapital) {
		// 资金撑不起两档网格：不动现有挂单，等资金恢复
		p.logger.Warn("Capital below minimum for a grid, cycle skipped",
			zap.Float64("capital", plan.Capital),
			zap.Float64("min_order", p.config.MinOrderSize))
		return nil
	}
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	full := forceFull
	if p.compound.ShouldReplan(plan.Capital) {
		full = true
		if baseline, ok := p.compound.Baseline(); ok {
			p.logger.LogCycle("compound", map[string]interface{}{
				"capital":  plan.Capital,
				"baseline": baseline,
				"profit":   plan.Capital - baseline,
			})
		}
	}

	var diff grid.Diff
	if full {
		diff = p.reconciler.FullReplace(plan.Intents, resting)
	} else {
		diff = p.reconciler.Incremental(plan.Intents, resting)
	}

	if err := p.applyDiff(ctx, diff); err != nil {
		return err
	}

	// 基线只在重排真正落地之后推进
	if full {
		p.compound.Record(plan.Capital)
		if !forceFull {
			p.stats.mu.Lock()
			p.stats.TotalReplans++
			p.stats.mu.Unlock()
			metrics.Replans.Inc()
		}
	}

	baseline, _ := p.compound.Baseline()
	metrics.UpdatePlanMetrics(plan.Capital, plan.LevelCount, mid, baseline, p.compound.ProfitSince(plan.Capital))

	p.logger.LogCycle("plan_cycle", map[string]interface{}{
		"capital":   plan.Capital,
		"levels":    plan.LevelCount,
		"mid":       mid,
		"placed":    len(diff.ToPlace),
		"cancelled": len(diff.ToCancel),
	})
	return nil
}

// applyDiff 先撤后挂。网格单全部 post-only：吃单的活只留给反手单。
func (p *GridPlanner) applyDiff(ctx context.Context, diff grid.Diff) error {
	if diff.Empty() {
		return nil
	}
	if err := p.gateway.CancelOrders(ctx, diff.ToCancel); err != nil {
		return fmt.Errorf("cancel %d orders: %w", len(diff.ToCancel), err)
	}
	if err := p.gateway.PlaceOrdersBatch(ctx, diff.ToPlace, true); err != nil {
		return fmt.Errorf("place %d orders: %w", len(diff.ToPlace), err)
	}

	buys, sells := 0, 0
	for _, it := range diff.ToPlace {
		if it.Side == grid.SideBuy {
			buys++
		} else {
			sells++
		}
	}
	metrics.RecordDiff(len(diff.ToCancel), buys, sells)
	return nil
}

// onFill 成交反手：相反方向、同价、同量，立即提交。
// 单个反手失败只影响这一笔，缺口留给下一次全量重排补齐。
func (p *GridPlanner) onFill(ctx context.Context, f grid.Fill) {
	if p.fills != nil {
		p.fills.Record(f)
	}

	flip := grid.FlipIntent(f)
	if err := p.gateway.PlaceOrder(ctx, flip, false); err != nil {
		p.recordError()
		p.logger.Error("Failed to place flip order",
			zap.String("side", string(flip.Side)),
			zap.Float64("price", flip.Price),
			zap.Float64("size", flip.Size),
			zap.Error(err))
		return
	}

	p.stats.mu.Lock()
	p.stats.TotalFlips++
	p.stats.mu.Unlock()
	metrics.Flips.Inc()

	p.logger.LogCycle("flip", map[string]interface{}{
		"side":  string(flip.Side),
		"price": flip.Price,
		"size":  flip.Size,
	})
}

func (p *GridPlanner) recordError() {
	p.stats.mu.Lock()
	p.stats.TotalErrors++
	p.stats.mu.Unlock()
}

func (p *GridPlanner) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// GetState 获取当前状态
func (p *GridPlanner) GetState() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// GetStatistics 获取统计信息快照
func (p *GridPlanner) GetStatistics() Statistics {
	p.stats.mu.RLock()
	defer p.stats.mu.RUnlock()
	return Statistics{
		StartTime:     p.stats.StartTime,
		TotalCycles:   p.stats.TotalCycles,
		TotalReplans:  p.stats.TotalReplans,
		TotalFlips:    p.stats.TotalFlips,
		TotalErrors:   p.stats.TotalErrors,
		DroppedFills:  p.stats.DroppedFills,
		LastCycleTime: p.stats.LastCycleTime,
	}
}

// ReconcileStats 获取对账统计
func (p *GridPlanner) ReconcileStats() grid.Stats {
	return p.reconciler.Statistics()
}

// validateConfig 验证配置
func validateConfig(cfg Config) error {
	if cfg.Asset == "" {
		return errors.New("asset is required")
	}
	if cfg.Bounds.Lower <= 0 || cfg.Bounds.Lower >= cfg.Bounds.Upper {
		return errors.New("bounds must satisfy 0 < lower < upper")
	}
	if cfg.MaxLevels < 2 {
		return errors.New("max_levels must be >= 2")
	}
	if cfg.MinOrderSize <= 0 {
		return errors.New("min_order_size must be > 0")
	}
	if cfg.CompoundThreshold <= 0 {
		return errors.New("compound_threshold must be > 0")
	}
	return nil
}

// validateComponents 验证组件
func validateComponents(comp Components) error {
	if comp.Gateway == nil {
		return errors.New("gateway is required")
	}
	if comp.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}
