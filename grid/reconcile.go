package grid

import (
	"sync"
	"time"
)

// Diff 一次对账产出的撤单/挂单集合。空集表示无需动作。
type Diff struct {
	ToCancel []string
	ToPlace  []OrderIntent
}

// Empty 判断 diff 是否为空。
func (d Diff) Empty() bool {
	return len(d.ToCancel) == 0 && len(d.ToPlace) == 0
}

// Reconciler 把期望订单集与交易所实际挂单做对账。
// 两种策略并存：
//   - Incremental：按归一化价格 key 做差集，只撤不在期望集里的挂单、
//     只挂还没挂上的档位，已有档位原样保留（即便 size 已漂移），
//     把撤/挂往返和吃 maker 档的费用损耗降到最小；size 漂移留给下一次
//     全量重排纠正。
//   - FullReplace：撤光再全量挂，size 立即正确，用于加仓重排与启动。
//
// 对账不假设撤/挂调用原子成功：部分失败后重跑一遍，过期读数下一周期
// 自然被重新 diff 掉。
type Reconciler struct {
	mu              sync.Mutex
	incrementalRuns int64
	fullRuns        int64
	lastRun         time.Time
}

// NewReconciler 创建对账器。
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Incremental 最小差集对账。
func (r *Reconciler) Incremental(desired []OrderIntent, resting []RestingOrder) Diff {
	r.mark(false)

	want := make(map[float64]OrderIntent, len(desired))
	for _, it := range desired {
		want[PriceKey(it.Price)] = it
	}
	have := make(map[float64]bool, len(resting))

	var diff Diff
	for _, o := range resting {
		key := PriceKey(o.Price)
		if _, ok := want[key]; !ok {
			diff.ToCancel = append(diff.ToCancel, o.ID)
			continue
		}
		have[key] = true
	}
	for _, it := range desired {
		if !have[PriceKey(it.Price)] {
			diff.ToPlace = append(diff.ToPlace, it)
		}
	}
	return diff
}

// FullReplace 无条件撤光再全挂。
func (r *Reconciler) FullReplace(desired []OrderIntent, resting []RestingOrder) Diff {
	r.mark(true)

	var diff Diff
	for _, o := range resting {
		diff.ToCancel = append(diff.ToCancel, o.ID)
	}
	diff.ToPlace = append(diff.ToPlace, desired...)
	return diff
}

func (r *Reconciler) mark(full bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if full {
		r.fullRuns++
	} else {
		r.incrementalRuns++
	}
	r.lastRun = time.Now()
}

// Stats 对账统计信息。
type Stats struct {
	IncrementalRuns int64
	FullRuns        int64
	LastRun         time.Time
}

// Statistics 返回累计统计。
func (r *Reconciler) Statistics() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		IncrementalRuns: r.incrementalRuns,
		FullRuns:        r.fullRuns,
		LastRun:         r.lastRun,
	}
}
