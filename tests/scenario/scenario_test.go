// Package scenario 提供端到端场景测试
package scenario

import (
	"context"
	"strings"
	"testing"

	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/parser"
	"github.com/tourplan/tourplan/pkg/planner/optimizer"
	"github.com/tourplan/tourplan/pkg/planner/solver"
	"github.com/tourplan/tourplan/pkg/solution"
	"github.com/tourplan/tourplan/pkg/validator"
)

// load 解析文本实例并建立索引
func load(t *testing.T, text string) *index.Index {
	t.Helper()
	p, err := parser.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parser.Parse() error = %v", err)
	}
	idx, err := index.New(p)
	if err != nil {
		t.Fatalf("index.New() error = %v", err)
	}
	return idx
}

// TestScenarioA_PivotIsBestRanked 单路线只能容纳一个兴趣点时，模式位置选中得分最高的候选
func TestScenarioA_PivotIsBestRanked(t *testing.T) {
	// 三个类别1候选得分 5/10/7，时间预算只够访问一个
	idx := load(t, `1 3 1000
3
1
1
0 0 0 0 0 0 30
1 10 0 5 5 0 100 1 1
2 0 10 5 10 0 100 1 1
3 -10 0 5 7 0 100 1 1
`)

	cfg := optimizer.DefaultConfig()
	cfg.MaxIterations = 2
	solvers := []solver.Solver{
		optimizer.NewAnnealer(cfg),
		solver.NewExhaustive(solver.DefaultOptions()),
		solver.NewBoundedExhaustive(solver.DefaultOptions()),
	}

	for _, s := range solvers {
		t.Run(s.Name(), func(t *testing.T) {
			result, err := s.Solve(context.Background(), idx)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}
			if result.Score != 10 {
				t.Errorf("Score = %v, expected 10", result.Score)
			}
			if got := result.Solution.Summary(); got != "[2:1]" {
				t.Errorf("Summary() = %v, expected [2:1]", got)
			}
			if conflicts := validator.Detect(result.Solution); len(conflicts) != 0 {
				t.Errorf("conflicts = %v", conflicts)
			}
		})
	}
}

// scenarioIndex 两条路线，类别上限各为1
func scenarioIndex(t *testing.T) *index.Index {
	return load(t, `2 3 100
1 1
1 1
1
2
0 0 0 0 0 0 100
1 10 0 5 10 50 90 10 1 0
2 0 10 5 7 0 90 10 0 1
3 0 20 5 4 0 90 10 1 0
`)
}

// TestScenarioB_WaitBeforeTravel 晚开门的兴趣点把等待放在出发之前
func TestScenarioB_WaitBeforeTravel(t *testing.T) {
	idx := scenarioIndex(t)
	s := solution.New(idx, solution.Options{})

	if !s.Insert(1, 1, 0, 0) {
		t.Fatal("Insert() = false, expected true")
	}

	// 开门 50，行程 10：从 40 出发，游览 50-55
	fs, _ := s.Filled(0, 1)
	if fs.Start != 40 || fs.End != 55 {
		t.Errorf("FilledSpace = %+v, expected {40 55}", fs)
	}

	spaces := s.EmptySpaces(0)
	if len(spaces) != 2 {
		t.Fatalf("EmptySpaces() = %+v, expected 2 gaps", spaces)
	}
	if spaces[0] != (solution.EmptySpace{Start: 0, End: 40, Before: -1, After: 0}) {
		t.Errorf("leading gap = %+v", spaces[0])
	}
	if spaces[1] != (solution.EmptySpace{Start: 55, End: 100, Before: 0, After: -1}) {
		t.Errorf("trailing gap = %+v", spaces[1])
	}
}

// TestScenarioC_SwapAtTypeCap 替换为已达上限的类别被拒绝
func TestScenarioC_SwapAtTypeCap(t *testing.T) {
	idx := scenarioIndex(t)
	s := solution.New(idx, solution.Options{})
	if !s.Insert(1, 1, 0, 0) || !s.Insert(2, 2, 0, 1) {
		t.Fatal("Insert() = false, expected true")
	}
	cost, score := s.Cost(), s.Score()

	// 类别1已用满，3 只能以类别1访问
	if s.Swap(3, 1, 0, 1) {
		t.Error("Swap() = true, expected false")
	}
	if s.Cost() != cost || s.Score() != score {
		t.Errorf("cost/score changed: %v/%v, expected %v/%v", s.Cost(), s.Score(), cost, score)
	}
	if s.Summary() != "[1:1] [2:2]" {
		t.Errorf("Summary() = %v, expected [1:1] [2:2]", s.Summary())
	}

	// 替换同类别的兴趣点不受上限影响
	if !s.Swap(3, 1, 0, 0) {
		t.Error("Swap() same type = false, expected true")
	}
}

// TestScenarioD_RemoveOnlyPOI 删除唯一兴趣点后整条路线为一个空闲区间
func TestScenarioD_RemoveOnlyPOI(t *testing.T) {
	idx := scenarioIndex(t)
	s := solution.New(idx, solution.Options{})
	if !s.Insert(2, 2, 0, 1) {
		t.Fatal("Insert() = false, expected true")
	}
	if !s.Remove(0, 1) {
		t.Fatal("Remove() = false, expected true")
	}

	spaces := s.EmptySpaces(1)
	expected := solution.EmptySpace{Start: idx.StartTime(), End: idx.EndTime(), Before: -1, After: -1}
	if len(spaces) != 1 || spaces[0] != expected {
		t.Errorf("EmptySpaces() = %+v, expected [%+v]", spaces, expected)
	}
	if spaces[0].Size() != idx.TimeBudget() {
		t.Errorf("gap size = %v, expected %v", spaces[0].Size(), idx.TimeBudget())
	}
	if s.Cost() != 0 || s.Score() != 0 || s.TypeCount(2) != 0 {
		t.Errorf("totals not reset: cost %v score %v count %d", s.Cost(), s.Score(), s.TypeCount(2))
	}
}
