// Package solver 提供游览规划求解器
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/solution"
)

// Solver 求解器接口
type Solver interface {
	// Solve 为实例生成游览方案
	Solve(ctx context.Context, idx *index.Index) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Solution   *solution.Solution `json:"-"`
	Score      float64            `json:"score"`
	Valid      bool               `json:"valid"`
	Iterations int                `json:"iterations"`
	Duration   time.Duration      `json:"duration"`
	Statistics *Statistics        `json:"statistics"`
}

// Statistics 搜索统计
type Statistics struct {
	Accepted         int `json:"accepted"`
	Rejected         int `json:"rejected"`
	Improvements     int `json:"improvements"`
	Diversifications int `json:"diversifications"`
	Explored         int `json:"explored"` // 穷举求解器访问的分支数
}

// Options 穷举求解器配置
type Options struct {
	WindowPolicy solution.WindowPolicy `json:"window_policy"`
	MaxBranches  int                   `json:"max_branches"` // 有界穷举每步保留的最大部分解数量
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		WindowPolicy: solution.StartBeforeClose,
		MaxBranches:  5000,
	}
}

// newResult 根据最优解构造结果
func newResult(best *solution.Solution, iterations int, stats *Statistics, start time.Time) *Result {
	r := &Result{
		Solution:   best,
		Iterations: iterations,
		Duration:   time.Since(start),
		Statistics: stats,
	}
	if best != nil {
		r.Score = best.Score()
		r.Valid = best.IsValid()
	}
	return r
}

// Criterion 候选排序规则
type Criterion int

const (
	// ByScore 按得分降序
	ByScore Criterion = iota
	// ByAverageDistance 按平均行程时间降序
	ByAverageDistance
)

// String 实现 Stringer
func (c Criterion) String() string {
	if c == ByAverageDistance {
		return "average-distance"
	}
	return "score"
}

// Rank 按规则对候选兴趣点稳定排序，返回新切片
func Rank(idx *index.Index, ids []int, c Criterion) []int {
	ranked := append([]int(nil), ids...)
	key := idx.Score
	if c == ByAverageDistance {
		key = idx.TravelAverage
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return key(ranked[i]) > key(ranked[j])
	})
	return ranked
}

// Candidates 返回接受某类别的全部兴趣点，按规则排序
func Candidates(idx *index.Index, typ int, c Criterion) []int {
	ids := make([]int, 0)
	for _, id := range idx.IDs() {
		if idx.POI(id).HasType(typ) {
			ids = append(ids, id)
		}
	}
	return Rank(idx, ids, c)
}

// FirstFit 按路线顺序尝试将兴趣点插入任一空闲区间，成功返回 true
func FirstFit(s *solution.Solution, id int) bool {
	types := s.Index().Types(id)
	for t := 0; t < s.TourCount(); t++ {
		if FitTour(s, id, types, t) {
			return true
		}
	}
	return false
}

// FitTour 尝试将兴趣点插入指定路线的任一空闲区间
func FitTour(s *solution.Solution, id int, types []int, t int) bool {
	for _, space := range s.EmptySpaces(t) {
		pos := space.Position(s.Len(t))
		for _, typ := range types {
			if s.Insert(id, typ, pos, t) {
				return true
			}
		}
	}
	return false
}
