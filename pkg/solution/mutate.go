package solution

import (
	"github.com/tourplan/tourplan/pkg/model"
)

// Insert 在路线 t 的 pos 位置插入兴趣点 id 并指派类别 typ
//
// 前置条件：id 尚未出现在解中；0 <= pos <= 路线长度；类别计数与总费用不超限。
// 新兴趣点及其下游区间在临时表中重算并校验，全部可行才提交，否则解保持不变。
func (s *Solution) Insert(id, typ, pos, t int) bool {
	if !s.validTour(t) || pos < 0 || pos > len(s.tours[t].pois) {
		return false
	}
	if !s.insertable(id, typ) {
		return false
	}
	if s.typeCount[typ]+1 > s.idx.MaxOfType(typ) {
		return false
	}
	if s.cost+s.idx.Cost(id) > s.idx.Budget()+epsilon {
		return false
	}

	tr := s.tours[t]
	seq := make([]int, 0, len(tr.pois)+1)
	seq = append(seq, tr.pois[:pos]...)
	seq = append(seq, id)
	seq = append(seq, tr.pois[pos:]...)

	scratch, ok := s.recompute(tr, seq, pos)
	if !ok {
		return false
	}

	s.commit(tr, seq, scratch, -1)
	s.visited.Add(uint32(id))
	s.types[id] = typ
	s.typeCount[typ]++
	s.refreshTotals()
	return true
}

// Remove 移除路线 t 中 pos 位置的兴趣点
//
// 下游区间重算后同样先校验再提交；新的首个兴趣点可从路线开始时间出发。
func (s *Solution) Remove(pos, t int) bool {
	if !s.validTour(t) || pos < 0 || pos >= len(s.tours[t].pois) {
		return false
	}

	tr := s.tours[t]
	id := tr.pois[pos]
	seq := make([]int, 0, len(tr.pois)-1)
	seq = append(seq, tr.pois[:pos]...)
	seq = append(seq, tr.pois[pos+1:]...)

	scratch, ok := s.recompute(tr, seq, pos)
	if !ok {
		return false
	}

	s.commit(tr, seq, scratch, id)
	s.visited.Remove(uint32(id))
	s.decrementType(s.types[id])
	delete(s.types, id)
	s.refreshTotals()
	return true
}

// Swap 用兴趣点 id（类别 typ）原子地替换路线 t 中 pos 位置的兴趣点
//
// 被替换兴趣点的费用和类别计数先扣除再检查上限；id 已在解中任意位置出现时失败。
func (s *Solution) Swap(id, typ, pos, t int) bool {
	if !s.validTour(t) || pos < 0 || pos >= len(s.tours[t].pois) {
		return false
	}
	if !s.insertable(id, typ) {
		return false
	}

	tr := s.tours[t]
	old := tr.pois[pos]
	oldType := s.types[old]

	count := s.typeCount[typ] + 1
	if oldType == typ {
		count--
	}
	if count > s.idx.MaxOfType(typ) {
		return false
	}
	if s.cost-s.idx.Cost(old)+s.idx.Cost(id) > s.idx.Budget()+epsilon {
		return false
	}

	seq := append([]int(nil), tr.pois...)
	seq[pos] = id

	scratch, ok := s.recompute(tr, seq, pos)
	if !ok {
		return false
	}

	s.commit(tr, seq, scratch, old)
	s.visited.Remove(uint32(old))
	s.decrementType(oldType)
	delete(s.types, old)

	s.visited.Add(uint32(id))
	s.types[id] = typ
	s.typeCount[typ]++
	s.refreshTotals()
	return true
}

// validTour 检查路线编号
func (s *Solution) validTour(t int) bool {
	return t >= 0 && t < len(s.tours)
}

// insertable 检查兴趣点可以以该类别进入解
func (s *Solution) insertable(id, typ int) bool {
	if id == model.DepotID || !s.idx.Has(id) || s.Contains(id) {
		return false
	}
	return s.idx.POI(id).HasType(typ)
}

// place 计算兴趣点在前驱之后的占用区间
//
// 若到达时尚未开门，则在出发前等待，使到达时间恰好为开门时间。
func (s *Solution) place(prevID int, prevEnd float64, id int) (FilledSpace, bool) {
	travel := s.idx.Travel(prevID, id)
	w := s.idx.Window(id)

	start := prevEnd
	if w.Open-travel > start {
		start = w.Open - travel
	}
	arrival := start + travel
	end := arrival + s.idx.Duration(id)

	var ok bool
	switch s.opts.WindowPolicy {
	case EndBeforeClose:
		ok = end <= w.Close+epsilon
	default:
		ok = arrival <= w.Close+epsilon
	}
	return FilledSpace{Start: start, End: end}, ok
}

// recompute 在临时表中重算 seq[from:] 的占用区间
//
// 一旦某个已有兴趣点的重算结果与现有区间相同，其后的兴趣点不会再受影响，停止重算。
// 最后校验返回仓库的截止时间。
func (s *Solution) recompute(tr *tour, seq []int, from int) (map[int]FilledSpace, bool) {
	scratch := make(map[int]FilledSpace)

	prevID, prevEnd := model.DepotID, s.idx.StartTime()
	if from > 0 {
		prevID = seq[from-1]
		prevEnd = tr.filled[prevID].End
	}

	for i := from; i < len(seq); i++ {
		id := seq[i]
		fs, ok := s.place(prevID, prevEnd, id)
		if !ok {
			return nil, false
		}
		if existing, found := tr.filled[id]; found && existing == fs {
			break
		}
		scratch[id] = fs
		prevID, prevEnd = id, fs.End
	}

	if len(seq) > 0 {
		last := seq[len(seq)-1]
		end, ok := scratch[last]
		if !ok {
			end = tr.filled[last]
		}
		if end.End+s.idx.Travel(last, model.DepotID) > s.idx.EndTime()+epsilon {
			return nil, false
		}
	}
	return scratch, true
}

// commit 提交新序列和临时区间，removed 为离开路线的兴趣点（-1 表示无）
func (s *Solution) commit(tr *tour, seq []int, scratch map[int]FilledSpace, removed int) {
	tr.pois = seq
	if removed >= 0 {
		delete(tr.filled, removed)
	}
	for id, fs := range scratch {
		tr.filled[id] = fs
	}
	s.rebuildSpaces(tr)
}

// rebuildSpaces 重建空闲区间列表和路线时长
func (s *Solution) rebuildSpaces(tr *tour) {
	start, end := s.idx.StartTime(), s.idx.EndTime()
	empty := make([]EmptySpace, 0, len(tr.pois)+1)

	prevEnd, before := start, -1
	for i, id := range tr.pois {
		fs, ok := tr.filled[id]
		if !ok {
			continue
		}
		if fs.Start > prevEnd+epsilon {
			empty = append(empty, EmptySpace{Start: prevEnd, End: fs.Start, Before: before, After: i})
		}
		prevEnd, before = fs.End, i
	}
	if end > prevEnd+epsilon {
		empty = append(empty, EmptySpace{Start: prevEnd, End: end, Before: before, After: -1})
	}
	tr.empty = empty

	if n := len(tr.pois); n > 0 {
		last := tr.pois[n-1]
		tr.duration = tr.filled[last].End + s.idx.Travel(last, model.DepotID) - start
	} else {
		tr.duration = 0
	}
}

// decrementType 减少类别计数，归零时删除
func (s *Solution) decrementType(typ int) {
	if s.typeCount[typ] <= 1 {
		delete(s.typeCount, typ)
		return
	}
	s.typeCount[typ]--
}

// refreshTotals 按路线顺序重新累计费用和得分
func (s *Solution) refreshTotals() {
	var cost, score float64
	for _, tr := range s.tours {
		for _, id := range tr.pois {
			cost += s.idx.Cost(id)
			score += s.idx.Score(id)
		}
	}
	s.cost, s.score = cost, score
}
