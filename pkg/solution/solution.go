// Package solution 维护带约束的多路线游览状态
//
// Solution 的所有变更都通过 Insert、Remove、Swap 完成。每次变更先在临时表中
// 重算受影响的时间区间并全部校验，校验通过才提交；任何一步不可行都返回 false，
// 且 Solution 保持调用前的状态不变。预算、类别上限、时间窗口在变更时持续保证，
// 只有必访模式需要通过 IsValid 在最后检查。
package solution

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/tourplan/tourplan/pkg/index"
)

// Options 解的配置
type Options struct {
	WindowPolicy WindowPolicy
}

// Visit 路线中的一次访问
type Visit struct {
	ID   int `json:"id"`
	Type int `json:"type"`
}

// tour 单条路线
type tour struct {
	pois     []int
	filled   map[int]FilledSpace
	empty    []EmptySpace
	duration float64
}

// Solution 多路线解
type Solution struct {
	idx  *index.Index
	opts Options

	tours     []*tour
	visited   *roaring.Bitmap
	types     map[int]int // 兴趣点编号 -> 指派类别
	typeCount map[int]int // 类别 -> 全局访问次数

	cost  float64
	score float64
}

// New 创建空解
func New(idx *index.Index, opts Options) *Solution {
	s := &Solution{
		idx:       idx,
		opts:      opts,
		tours:     make([]*tour, idx.TourCount()),
		visited:   roaring.New(),
		types:     make(map[int]int),
		typeCount: make(map[int]int),
	}
	for t := range s.tours {
		tr := &tour{filled: make(map[int]FilledSpace)}
		s.rebuildSpaces(tr)
		s.tours[t] = tr
	}
	return s
}

// Clone 深拷贝解，共享只读索引
func (s *Solution) Clone() *Solution {
	c := &Solution{
		idx:       s.idx,
		opts:      s.opts,
		tours:     make([]*tour, len(s.tours)),
		visited:   s.visited.Clone(),
		types:     make(map[int]int, len(s.types)),
		typeCount: make(map[int]int, len(s.typeCount)),
		cost:      s.cost,
		score:     s.score,
	}
	for t, tr := range s.tours {
		ct := &tour{
			pois:     append([]int(nil), tr.pois...),
			filled:   make(map[int]FilledSpace, len(tr.filled)),
			empty:    append([]EmptySpace(nil), tr.empty...),
			duration: tr.duration,
		}
		for id, fs := range tr.filled {
			ct.filled[id] = fs
		}
		c.tours[t] = ct
	}
	for id, typ := range s.types {
		c.types[id] = typ
	}
	for typ, n := range s.typeCount {
		c.typeCount[typ] = n
	}
	return c
}

// Index 返回共享索引
func (s *Solution) Index() *index.Index { return s.idx }

// Options 返回配置
func (s *Solution) Options() Options { return s.opts }

// TourCount 返回路线数量
func (s *Solution) TourCount() int { return len(s.tours) }

// Tour 返回路线中按顺序访问的兴趣点编号（副本）
func (s *Solution) Tour(t int) []int {
	return append([]int(nil), s.tours[t].pois...)
}

// Tours 返回全部路线（副本）
func (s *Solution) Tours() [][]int {
	result := make([][]int, len(s.tours))
	for t := range s.tours {
		result[t] = s.Tour(t)
	}
	return result
}

// Len 返回路线长度
func (s *Solution) Len(t int) int { return len(s.tours[t].pois) }

// At 返回路线指定位置的兴趣点编号
func (s *Solution) At(t, pos int) int { return s.tours[t].pois[pos] }

// Filled 返回兴趣点在路线中的占用区间
func (s *Solution) Filled(t, id int) (FilledSpace, bool) {
	fs, ok := s.tours[t].filled[id]
	return fs, ok
}

// EmptySpaces 返回路线的空闲区间（副本）
func (s *Solution) EmptySpaces(t int) []EmptySpace {
	return append([]EmptySpace(nil), s.tours[t].empty...)
}

// Duration 返回路线总时长（含返回仓库）
func (s *Solution) Duration(t int) float64 { return s.tours[t].duration }

// Cost 返回总费用
func (s *Solution) Cost() float64 { return s.cost }

// Score 返回总得分
func (s *Solution) Score() float64 { return s.score }

// Contains 检查兴趣点是否已被访问
func (s *Solution) Contains(id int) bool {
	return id >= 0 && s.visited.Contains(uint32(id))
}

// VisitedCount 返回已访问兴趣点数量
func (s *Solution) VisitedCount() int { return int(s.visited.GetCardinality()) }

// TypeOf 返回兴趣点的指派类别
func (s *Solution) TypeOf(id int) (int, bool) {
	typ, ok := s.types[id]
	return typ, ok
}

// TypeCount 返回类别的全局访问次数
func (s *Solution) TypeCount(typ int) int { return s.typeCount[typ] }

// Locate 查找兴趣点所在路线和位置
func (s *Solution) Locate(id int) (t, pos int, ok bool) {
	if !s.Contains(id) {
		return -1, -1, false
	}
	for t, tr := range s.tours {
		for pos, pid := range tr.pois {
			if pid == id {
				return t, pos, true
			}
		}
	}
	return -1, -1, false
}

// IsValid 检查每条路线的类别序列是否按序包含其必访模式，且兴趣点不跨路线重复
func (s *Solution) IsValid() bool {
	seen := roaring.New()
	for t, tr := range s.tours {
		if s.PatternProgress(t) != len(s.idx.Pattern(t)) {
			return false
		}
		for _, id := range tr.pois {
			if !seen.CheckedAdd(uint32(id)) {
				return false
			}
		}
	}
	return true
}

// PatternProgress 返回路线已按序满足的模式前缀长度，模式按非连续有序子序列匹配
func (s *Solution) PatternProgress(t int) int {
	pattern := s.idx.Pattern(t)
	matched := 0
	for _, id := range s.tours[t].pois {
		if matched == len(pattern) {
			break
		}
		if s.types[id] == pattern[matched] {
			matched++
		}
	}
	return matched
}

// Dump 返回每条路线的 (编号, 类别) 序列
func (s *Solution) Dump() [][]Visit {
	result := make([][]Visit, len(s.tours))
	for t, tr := range s.tours {
		visits := make([]Visit, len(tr.pois))
		for i, id := range tr.pois {
			visits[i] = Visit{ID: id, Type: s.types[id]}
		}
		result[t] = visits
	}
	return result
}

// Summary 返回紧凑的路线描述，例如 "[3:1 5:2] [7:1]"
func (s *Solution) Summary() string {
	var b strings.Builder
	for t, visits := range s.Dump() {
		if t > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('[')
		for i, v := range visits {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d:%d", v.ID, v.Type)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// String 实现 Stringer
func (s *Solution) String() string {
	return fmt.Sprintf("Score: %g, Cost: %g, Tours: %s", s.score, s.cost, s.Summary())
}

// Equal 比较两个解的全部可观察状态
func (s *Solution) Equal(o *Solution) bool {
	if s.cost != o.cost || s.score != o.score || len(s.tours) != len(o.tours) {
		return false
	}
	if !s.visited.Equals(o.visited) || len(s.types) != len(o.types) {
		return false
	}
	for id, typ := range s.types {
		if o.types[id] != typ {
			return false
		}
	}
	if len(s.typeCount) != len(o.typeCount) {
		return false
	}
	for typ, n := range s.typeCount {
		if o.typeCount[typ] != n {
			return false
		}
	}
	for t, tr := range s.tours {
		ot := o.tours[t]
		if len(tr.pois) != len(ot.pois) || len(tr.empty) != len(ot.empty) || len(tr.filled) != len(ot.filled) {
			return false
		}
		if tr.duration != ot.duration {
			return false
		}
		for i := range tr.pois {
			if tr.pois[i] != ot.pois[i] {
				return false
			}
		}
		for i := range tr.empty {
			if tr.empty[i] != ot.empty[i] {
				return false
			}
		}
		for id, fs := range tr.filled {
			if ofs, ok := ot.filled[id]; !ok || ofs != fs {
				return false
			}
		}
	}
	return true
}

// VisitedIDs 返回已访问兴趣点编号（升序）
func (s *Solution) VisitedIDs() []int {
	result := make([]int, 0, s.visited.GetCardinality())
	it := s.visited.Iterator()
	for it.HasNext() {
		result = append(result, int(it.Next()))
	}
	return result
}
