package optimizer

import (
	"github.com/tourplan/tourplan/pkg/planner/solver"
)

// diversify 扰动当前解：随机移除、交换模式位置候选、随机插入
func (r *run) diversify() {
	removed := r.removeRandom()
	swapped := r.swapPivots()
	inserted := r.insertRandom()

	r.stats.Diversifications++
	r.logger.Diversify(r.iterations, removed, swapped, inserted)
	r.recordBest()
}

// removeRandom 随机移除至多 MaxRemovals 个非模式兴趣点，移入池
func (r *run) removeRandom() int {
	removed := 0
	tours := r.cur.TourCount()
	for i := 0; i < r.cfg.MaxRemovals; i++ {
		pivotIDs := r.pivots.ids()
		t := r.rng.Intn(tours)

		positions := make([]int, 0, r.cur.Len(t))
		for pos, id := range r.cur.Tour(t) {
			if !pivotIDs[id] {
				positions = append(positions, pos)
			}
		}
		if len(positions) == 0 {
			continue
		}

		pos := positions[r.rng.Intn(len(positions))]
		id := r.cur.At(t, pos)
		if r.cur.Remove(pos, t) {
			r.pool = append(r.pool, id)
			removed++
		}
	}
	return removed
}

// swapPivots 每条路线随机选择 [MinSwaps, MaxSwaps] 个模式位置，换成该位置的其他候选
//
// 候选已在解中时先将其移除；替换后不合法则放弃，当前解保持不变。
func (r *run) swapPivots() int {
	swapped := 0
	for t, slots := range r.pivots {
		if len(slots) == 0 {
			continue
		}
		tries := r.cfg.MinSwaps + r.rng.Intn(r.cfg.MaxSwaps-r.cfg.MinSwaps+1)
		for i := 0; i < tries; i++ {
			sl := slots[r.rng.Intn(len(slots))]
			if len(sl.candidates) < 2 {
				continue
			}
			k := r.rng.Intn(len(sl.candidates) - 1)
			if k >= sl.selected {
				k++
			}
			if r.trySwapPivot(t, sl, k) {
				swapped++
			}
		}
	}
	return swapped
}

// trySwapPivot 在克隆上把模式位置换成第 k 个候选，成功后替换当前解
func (r *run) trySwapPivot(t int, sl *slot, k int) bool {
	old, replacement := sl.current(), sl.candidates[k]
	if r.pivots.ids()[replacement] {
		return false
	}

	candidate := r.cur.Clone()
	if ct, cp, ok := candidate.Locate(replacement); ok {
		if !candidate.Remove(cp, ct) {
			return false
		}
	}
	_, pos, ok := candidate.Locate(old)
	if !ok {
		return false
	}
	if !candidate.Swap(replacement, sl.typ, pos, t) || !candidate.IsValid() {
		return false
	}

	r.cur = candidate
	sl.selected = k
	r.pool = removeID(r.pool, replacement)
	r.pool = append(r.pool, old)
	return true
}

// insertRandom 随机挑选至多 MaxInsertions 个池中兴趣点尝试插入
func (r *run) insertRandom() int {
	inserted := 0
	for i := 0; i < r.cfg.MaxInsertions && len(r.pool) > 0; i++ {
		k := r.rng.Intn(len(r.pool))
		if solver.FirstFit(r.cur, r.pool[k]) {
			r.pool = append(r.pool[:k], r.pool[k+1:]...)
			inserted++
		}
	}
	return inserted
}
