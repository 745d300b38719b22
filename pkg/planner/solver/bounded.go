package solver

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/logger"
	"github.com/tourplan/tourplan/pkg/solution"
)

// BoundedExhaustive 有界穷举求解器
//
// 第一阶段枚举每个模式位置的全部候选组合（按得分排序），得到满足全部模式的基础解；
// 第二阶段按得分降序依次把其余兴趣点分支插入每个空闲区间。
// 每一步最多保留 MaxBranches 个得分最高的部分解。
type BoundedExhaustive struct {
	opts   Options
	logger *logger.SolverLogger
}

// NewBoundedExhaustive 创建有界穷举求解器
func NewBoundedExhaustive(opts Options) *BoundedExhaustive {
	if opts.MaxBranches <= 0 {
		opts.MaxBranches = DefaultOptions().MaxBranches
	}
	return &BoundedExhaustive{
		opts:   opts,
		logger: logger.NewSolverLogger("bounded"),
	}
}

// Name 返回求解器名称
func (b *BoundedExhaustive) Name() string {
	return "bounded"
}

// Solve 执行有界穷举
func (b *BoundedExhaustive) Solve(ctx context.Context, idx *index.Index) (*Result, error) {
	start := time.Now()
	stats := &Statistics{}
	b.logger.StartSolve(idx.TourCount(), len(idx.IDs()), idx.Budget())

	bases, err := b.enumeratePivots(ctx, idx, stats)
	if err != nil {
		return newResult(nil, stats.Explored, stats, start), err
	}
	if len(bases) == 0 {
		return newResult(nil, stats.Explored, stats, start), apperrors.NoFeasibleSolution("没有满足全部模式的候选组合")
	}
	b.logger.InitialSolution(bases[0].Score(), bases[0].VisitedCount(), len(bases))

	var best *solution.Solution
	for _, base := range bases {
		if best == nil || base.Score() > best.Score() {
			best = base
		}
		found, err := b.extend(ctx, base, stats)
		if found != nil && found.Score() > best.Score() {
			best = found
			stats.Improvements++
			b.logger.Improvement(stats.Explored, best.Score())
		}
		if err != nil {
			return newResult(best, stats.Explored, stats, start), err
		}
	}

	result := newResult(best, stats.Explored, stats, start)
	b.logger.SolveComplete(result.Duration, result.Score, result.Iterations)
	return result, nil
}

// enumeratePivots 枚举模式位置的候选组合，只保留合法解
func (b *BoundedExhaustive) enumeratePivots(ctx context.Context, idx *index.Index, stats *Statistics) ([]*solution.Solution, error) {
	partials := []*solution.Solution{
		solution.New(idx, solution.Options{WindowPolicy: b.opts.WindowPolicy}),
	}

	for t := 0; t < idx.TourCount(); t++ {
		for _, typ := range idx.Pattern(t) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next := make([]*solution.Solution, 0, len(partials))
			for _, id := range Candidates(idx, typ, ByScore) {
				for _, p := range partials {
					stats.Explored++
					c := p.Clone()
					if !c.Insert(id, typ, c.Len(t), t) {
						stats.Rejected++
						continue
					}
					stats.Accepted++
					next = append(next, c)
				}
			}
			partials = b.prune(next)
			if len(partials) == 0 {
				return nil, apperrors.PatternUnsatisfiable(t, idx.Pattern(t))
			}
		}
	}

	valid := partials[:0]
	for _, p := range partials {
		if p.IsValid() {
			valid = append(valid, p)
		}
	}
	return valid, nil
}

// extend 将其余兴趣点分支插入基础解的每个空闲区间，返回得分最高的解
func (b *BoundedExhaustive) extend(ctx context.Context, base *solution.Solution, stats *Statistics) (*solution.Solution, error) {
	idx := base.Index()
	others := make([]int, 0)
	for _, id := range idx.IDs() {
		if !base.Contains(id) {
			others = append(others, id)
		}
	}
	others = Rank(idx, others, ByScore)

	best := base
	solutions := []*solution.Solution{base}
	for _, id := range others {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		clones := make([]*solution.Solution, 0)
		for _, s := range solutions {
			for _, typ := range idx.Types(id) {
				for t := 0; t < s.TourCount(); t++ {
					for _, space := range s.EmptySpaces(t) {
						stats.Explored++
						c := s.Clone()
						if !c.Insert(id, typ, space.Position(c.Len(t)), t) {
							stats.Rejected++
							continue
						}
						stats.Accepted++
						clones = append(clones, c)
						if c.Score() > best.Score() {
							best = c
						}
					}
				}
			}
		}
		solutions = b.prune(append(solutions, clones...))
	}
	return best, nil
}

// prune 按得分降序保留至多 MaxBranches 个部分解
func (b *BoundedExhaustive) prune(solutions []*solution.Solution) []*solution.Solution {
	if len(solutions) <= b.opts.MaxBranches {
		return solutions
	}
	sort.SliceStable(solutions, func(i, j int) bool {
		return solutions[i].Score() > solutions[j].Score()
	})
	return solutions[:b.opts.MaxBranches]
}
