package posttrade

import (
	"sync"
	"time"

	"grid-bot-go/grid"
)

// Record 一条落账的成交
type Record struct {
	Side  grid.Side
	Price float64
	Size  float64
	Time  time.Time
}

// Stats 成交台账的汇总统计
type Stats struct {
	TotalFills int
	Buys       int
	Sells      int
	BuyVolume  float64 // 基础币
	SellVolume float64
	BuyVWAP    float64
	SellVWAP   float64

	// 已配对数量（min(买量, 卖量)）乘以 VWAP 价差：
	// 网格已兑现利润的保守估计，未配对的一侧不计
	MatchedVolume  float64
	RealizedSpread float64
}

// Ledger 进程内成交台账。交易所才是账本的事实来源，
// 这里只为运行期统计与日志服务，重启清零。
type Ledger struct {
	mu    sync.RWMutex
	fills []Record
}

// NewLedger 创建成交台账
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record 落账一条成交
func (l *Ledger) Record(f grid.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills = append(l.fills, Record{
		Side:  f.Side,
		Price: f.Price,
		Size:  f.Size,
		Time:  time.Now(),
	})
}

// Stats 汇总当前台账
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Stats{TotalFills: len(l.fills)}
	var buyNotional, sellNotional float64
	for _, f := range l.fills {
		if f.Side == grid.SideBuy {
			s.Buys++
			s.BuyVolume += f.Size
			buyNotional += f.Size * f.Price
		} else {
			s.Sells++
			s.SellVolume += f.Size
			sellNotional += f.Size * f.Price
		}
	}
	if s.BuyVolume > 0 {
		s.BuyVWAP = buyNotional / s.BuyVolume
	}
	if s.SellVolume > 0 {
		s.SellVWAP = sellNotional / s.SellVolume
	}

	s.MatchedVolume = s.BuyVolume
	if s.SellVolume < s.MatchedVolume {
		s.MatchedVolume = s.SellVolume
	}
	if s.MatchedVolume > 0 {
		s.RealizedSpread = s.MatchedVolume * (s.SellVWAP - s.BuyVWAP)
	}
	return s
}

// Prune 丢掉过旧的记录，长跑进程不让台账无限膨胀。
func (l *Ledger) Prune(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := l.fills[:0]
	for _, f := range l.fills {
		if f.Time.After(cutoff) {
			kept = append(kept, f)
		}
	}
	l.fills = kept
}
