package solver

import (
	"context"
	"time"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/solution"
)

// ctxCheckInterval 每访问多少个分支检查一次取消
const ctxCheckInterval = 1024

// Exhaustive 穷举求解器
//
// 深度优先枚举每条路线的全部有序访问序列及类别选择，每个分支都克隆解。
// 路线按编号递增填充，每种配置只访问一次。复杂度为指数级，仅适合小实例。
type Exhaustive struct {
	opts   Options
	logger *logger.SolverLogger
}

// NewExhaustive 创建穷举求解器
func NewExhaustive(opts Options) *Exhaustive {
	return &Exhaustive{
		opts:   opts,
		logger: logger.NewSolverLogger("exhaustive"),
	}
}

// Name 返回求解器名称
func (e *Exhaustive) Name() string {
	return "exhaustive"
}

// exhaustiveState 单次搜索状态
type exhaustiveState struct {
	ctx   context.Context
	ids   []int
	best  *solution.Solution
	stats *Statistics
}

// Solve 枚举全部可行解并返回得分最高的合法解
func (e *Exhaustive) Solve(ctx context.Context, idx *index.Index) (*Result, error) {
	start := time.Now()
	e.logger.StartSolve(idx.TourCount(), len(idx.IDs()), idx.Budget())

	st := &exhaustiveState{
		ctx:   ctx,
		ids:   idx.IDs(),
		stats: &Statistics{},
	}
	root := solution.New(idx, solution.Options{WindowPolicy: e.opts.WindowPolicy})

	if err := e.search(st, root, 0); err != nil {
		return newResult(st.best, st.stats.Explored, st.stats, start), err
	}
	if st.best == nil {
		return newResult(nil, st.stats.Explored, st.stats, start), apperrors.NoFeasibleSolution("穷举未找到满足全部模式的解")
	}

	result := newResult(st.best, st.stats.Explored, st.stats, start)
	e.logger.SolveComplete(result.Duration, result.Score, result.Iterations)
	return result, nil
}

// search 在路线 tour 及之后的路线末尾追加兴趣点
func (e *Exhaustive) search(st *exhaustiveState, s *solution.Solution, tour int) error {
	st.stats.Explored++
	if st.stats.Explored%ctxCheckInterval == 0 && st.ctx.Err() != nil {
		return st.ctx.Err()
	}

	if s.IsValid() && (st.best == nil || s.Score() > st.best.Score()) {
		st.best = s.Clone()
		st.stats.Improvements++
		e.logger.Improvement(st.stats.Explored, s.Score())
	}

	idx := s.Index()
	for t := tour; t < s.TourCount(); t++ {
		for _, id := range st.ids {
			if s.Contains(id) {
				continue
			}
			for _, typ := range idx.Types(id) {
				c := s.Clone()
				if !c.Insert(id, typ, c.Len(t), t) {
					st.stats.Rejected++
					continue
				}
				st.stats.Accepted++
				if err := e.search(st, c, t); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
