package optimizer

import (
	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/planner/solver"
	"github.com/tourplan/tourplan/pkg/solution"
)

// position 模式位置坐标
type position struct {
	tour int
	slot int
}

// construct 依次为每个模式位置选择排序最靠前且可插入的候选，追加到路线末尾
//
// 某位置的候选全部失败时回退到上一个位置，移除其兴趣点并尝试下一个候选，
// 上一个位置可以属于前一条路线。回溯预算耗尽或回退到起点仍失败时报告模式无法满足。
func (r *run) construct() error {
	r.cur = solution.New(r.idx, solution.Options{WindowPolicy: r.cfg.WindowPolicy})

	order := make([]position, 0, r.pivots.count())
	for t, slots := range r.pivots {
		for j := range slots {
			order = append(order, position{tour: t, slot: j})
		}
	}

	cursor := make([]int, len(order))
	steps, deepest := 0, 0
	for i := 0; i < len(order); {
		if i > deepest {
			deepest = i
		}
		p := order[i]
		sl := r.pivots[p.tour][p.slot]

		placed := false
		for k := cursor[i]; k < len(sl.candidates); k++ {
			steps++
			if steps > r.cfg.MaxBacktracks {
				return r.unsatisfiable(order[deepest].tour)
			}
			if r.cur.Insert(sl.candidates[k], sl.typ, r.cur.Len(p.tour), p.tour) {
				sl.selected = k
				cursor[i] = k + 1
				placed = true
				break
			}
		}
		if placed {
			i++
			continue
		}

		cursor[i] = 0
		if i == 0 {
			return r.unsatisfiable(order[deepest].tour)
		}
		i--
		prev := order[i]
		r.cur.Remove(r.cur.Len(prev.tour)-1, prev.tour)
	}
	return nil
}

// unsatisfiable 生成模式无法满足的错误
func (r *run) unsatisfiable(tour int) error {
	r.logger.Infeasible(tour, "模式无法满足")
	return apperrors.PatternUnsatisfiable(tour, r.idx.Pattern(tour))
}

// fillInitial 按跳跃步长遍历其余兴趣点，插入随机选中的路线，放不下的进入池
//
// 偏移量随机，每轮从偏移处按步长前进，共 stride 轮覆盖全部兴趣点。
func (r *run) fillInitial() {
	remaining := make([]int, 0)
	for _, id := range r.idx.IDs() {
		if !r.cur.Contains(id) {
			remaining = append(remaining, id)
		}
	}

	stride := r.cfg.Stride
	offset := r.rng.Intn(stride)
	tours := r.cur.TourCount()
	r.pool = r.pool[:0]

	for round := 0; round < stride; round++ {
		for i := (offset + round) % stride; i < len(remaining); i += stride {
			id := remaining[i]
			types := r.idx.Types(id)
			first := r.rng.Intn(tours)

			placed := false
			for k := 0; k < tours && !placed; k++ {
				placed = solver.FitTour(r.cur, id, types, (first+k)%tours)
			}
			if !placed {
				r.pool = append(r.pool, id)
			}
		}
	}
}
