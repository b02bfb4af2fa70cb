package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-bot-go/grid"
	"grid-bot-go/infrastructure/logger"
	"grid-bot-go/internal/engine"
)

// mockGateway 模拟交易所网关：记录全部撤/挂调用供断言。
type mockGateway struct {
	mu sync.Mutex

	mid     float64
	midErr  error
	quote   float64
	base    float64
	resting []grid.RestingOrder

	placed      []grid.OrderIntent
	placedPost  []bool
	cancelled   []string
	cancelAlls  int
	onFill      func(grid.Fill)
	subscribeCh chan struct{}
}

func newMockGateway(mid, quote, base float64) *mockGateway {
	return &mockGateway{mid: mid, quote: quote, base: base}
}

func (m *mockGateway) MidPrice(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mid, m.midErr
}

func (m *mockGateway) Balances(ctx context.Context) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quote, m.base, nil
}

func (m *mockGateway) OpenOrders(ctx context.Context) ([]grid.RestingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]grid.RestingOrder(nil), m.resting...), nil
}

func (m *mockGateway) CancelOrders(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, ids...)
	return nil
}

func (m *mockGateway) CancelAllOrders(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelAlls++
	return nil
}

func (m *mockGateway) PlaceOrder(ctx context.Context, it grid.OrderIntent, postOnly bool) error {
	return m.PlaceOrdersBatch(ctx, []grid.OrderIntent{it}, postOnly)
}

func (m *mockGateway) PlaceOrdersBatch(ctx context.Context, intents []grid.OrderIntent, postOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range intents {
		m.placed = append(m.placed, it)
		m.placedPost = append(m.placedPost, postOnly)
	}
	return nil
}

func (m *mockGateway) SubscribeFills(ctx context.Context, onFill func(grid.Fill)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFill = onFill
	return nil
}

func (m *mockGateway) setMidErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.midErr = err
}

func (m *mockGateway) setBalances(quote, base float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quote, m.base = quote, base
}

func (m *mockGateway) placedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.placed)
}

func (m *mockGateway) lastPlaced() (grid.OrderIntent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.placed) == 0 {
		return grid.OrderIntent{}, false
	}
	return m.placed[len(m.placed)-1], m.placedPost[len(m.placedPost)-1]
}

func (m *mockGateway) fill(f grid.Fill) {
	m.mu.Lock()
	fn := m.onFill
	m.mu.Unlock()
	fn(f)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Outputs: []string{"stdout"}, Format: "json"})
	require.NoError(t, err)
	return log
}

func testConfig() engine.Config {
	return engine.Config{
		Asset:             "FEUSD",
		Bounds:            grid.Bounds{Lower: 0.95, Upper: 1.05},
		MaxLevels:         20,
		MinOrderSize:      11,
		CompoundThreshold: 10,
		PlanInterval:      time.Hour, // 默认测试里不触发定时周期
		FillQueueSize:     8,
	}
}

func newPlanner(t *testing.T, cfg engine.Config, gw *mockGateway) *engine.GridPlanner {
	t.Helper()
	p, err := engine.New(cfg, engine.Components{Gateway: gw, Logger: newTestLogger(t)})
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990)
	log := newTestLogger(t)

	tests := []struct {
		name   string
		mutate func(*engine.Config)
		comps  engine.Components
	}{
		{"missing asset", func(c *engine.Config) { c.Asset = "" }, engine.Components{Gateway: gw, Logger: log}},
		{"inverted bounds", func(c *engine.Config) { c.Bounds = grid.Bounds{Lower: 1.05, Upper: 0.95} }, engine.Components{Gateway: gw, Logger: log}},
		{"max levels too small", func(c *engine.Config) { c.MaxLevels = 1 }, engine.Components{Gateway: gw, Logger: log}},
		{"zero min order", func(c *engine.Config) { c.MinOrderSize = 0 }, engine.Components{Gateway: gw, Logger: log}},
		{"zero threshold", func(c *engine.Config) { c.CompoundThreshold = 0 }, engine.Components{Gateway: gw, Logger: log}},
		{"nil gateway", func(c *engine.Config) {}, engine.Components{Logger: log}},
		{"nil logger", func(c *engine.Config) {}, engine.Components{Gateway: gw}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := engine.New(cfg, tt.comps)
			assert.Error(t, err)
		})
	}
}

func TestStart_BuildsInitialGrid(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990)
	gw.resting = []grid.RestingOrder{{ID: "77", Side: grid.SideBuy, Price: 0.50, Size: 99}}

	p := newPlanner(t, testConfig(), gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Stop() }()

	assert.Equal(t, engine.StateRunning, p.GetState())

	// 启动全量重建：陈旧挂单撤掉，两侧网格单全部挂出且 post-only
	assert.Contains(t, gw.cancelled, "77")
	require.NotZero(t, gw.placedCount())
	buys, sells := 0, 0
	for i, it := range gw.placed {
		assert.True(t, gw.placedPost[i], "grid orders must be post-only")
		if it.Side == grid.SideBuy {
			buys++
		} else {
			sells++
		}
	}
	assert.NotZero(t, buys, "buy side must be populated")
	assert.NotZero(t, sells, "sell side must be populated")

	stats := p.GetStatistics()
	assert.Equal(t, int64(1), stats.TotalCycles)
}

func TestStart_Twice(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990)
	p := newPlanner(t, testConfig(), gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Stop() }()

	assert.Error(t, p.Start(ctx), "double start must be rejected")
}

func TestStop_CancelsAllOrders(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990)
	p := newPlanner(t, testConfig(), gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Stop())

	assert.Equal(t, engine.StateStopped, p.GetState())
	assert.Equal(t, 1, gw.cancelAlls, "stop must attempt cancel-all")
	assert.Error(t, p.Stop(), "stop when stopped must be rejected")
}

func TestFill_PlacesFlipOrder(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990)
	p := newPlanner(t, testConfig(), gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Stop() }()

	before := gw.placedCount()
	gw.fill(grid.Fill{Side: grid.SideBuy, Price: 0.99, Size: 20})

	require.Eventually(t, func() bool {
		return gw.placedCount() == before+1
	}, 2*time.Second, 10*time.Millisecond)

	it, postOnly := gw.lastPlaced()
	assert.Equal(t, grid.SideSell, it.Side, "buy fill flips to sell")
	assert.Equal(t, 0.99, it.Price)
	assert.Equal(t, 20.0, it.Size)
	assert.False(t, postOnly, "flip orders must not be post-only")

	assert.Eventually(t, func() bool {
		return p.GetStatistics().TotalFlips == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCycleError_SkipsAndKeepsRunning(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990)
	cfg := testConfig()
	cfg.PlanInterval = 20 * time.Millisecond
	p := newPlanner(t, cfg, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Stop() }()

	gw.setMidErr(errors.New("gateway unavailable"))

	require.Eventually(t, func() bool {
		return p.GetStatistics().TotalErrors >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, engine.StateRunning, p.GetState(), "cycle errors must not stop the planner")
}

func TestCompound_TriggersFullReplan(t *testing.T) {
	gw := newMockGateway(1.0, 110, 990) // capital 1100
	cfg := testConfig()
	cfg.PlanInterval = 20 * time.Millisecond
	cfg.CompoundThreshold = 50
	p := newPlanner(t, cfg, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Stop() }()

	// 利润未到阈值：周期全部走增量
	require.Eventually(t, func() bool {
		return p.ReconcileStats().IncrementalRuns >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), p.ReconcileStats().FullRuns, "only the startup build is full")

	// 资金越过基线+阈值：下一周期全量重排
	gw.setBalances(200, 990) // capital 1190, profit 90 >= 50
	require.Eventually(t, func() bool {
		return p.ReconcileStats().FullRuns >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return p.GetStatistics().TotalReplans >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInsufficientCapital_SkipsCycle(t *testing.T) {
	gw := newMockGateway(1.0, 10, 5) // capital 15 < 2*11
	p := newPlanner(t, testConfig(), gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Start(ctx))
	defer func() { _ = p.Stop() }()

	assert.Equal(t, engine.StateRunning, p.GetState())
	assert.Zero(t, gw.placedCount(), "no orders when capital cannot fund a grid")
	assert.Empty(t, gw.cancelled, "existing orders left alone")
}
