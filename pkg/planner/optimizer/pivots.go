package optimizer

import (
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/planner/solver"
)

// slot 一个模式位置的候选及当前选中项
type slot struct {
	typ        int
	candidates []int
	selected   int
}

// current 返回当前选中的兴趣点编号
func (s *slot) current() int {
	return s.candidates[s.selected]
}

// pivots 模式位置簿记，pivots[t][j] 为路线 t 模式第 j 个位置
//
// 同一模式中重复出现的类别各自占用一个位置。
type pivots [][]*slot

// newPivots 为每个模式位置生成排序后的候选列表
func newPivots(idx *index.Index, c solver.Criterion) pivots {
	byType := make(map[int][]int)
	p := make(pivots, idx.TourCount())
	for t := range p {
		pattern := idx.Pattern(t)
		p[t] = make([]*slot, len(pattern))
		for j, typ := range pattern {
			if _, ok := byType[typ]; !ok {
				byType[typ] = solver.Candidates(idx, typ, c)
			}
			p[t][j] = &slot{typ: typ, candidates: byType[typ]}
		}
	}
	return p
}

// ids 返回当前全部选中的兴趣点
func (p pivots) ids() map[int]bool {
	result := make(map[int]bool)
	for _, tour := range p {
		for _, s := range tour {
			result[s.current()] = true
		}
	}
	return result
}

// count 返回模式位置总数
func (p pivots) count() int {
	n := 0
	for _, tour := range p {
		n += len(tour)
	}
	return n
}
