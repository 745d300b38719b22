package validator

import (
	"testing"

	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/solution"
)

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(&model.Problem{
		TourCount:  2,
		POICount:   4,
		Budget:     25,
		MaxPerType: []int{2, 1},
		Patterns:   [][]int{{1}, {2}},
		POIs: []model.POI{
			{ID: 0, Open: 0, Close: 60},
			{ID: 1, X: 10, Duration: 5, Score: 10, Open: 0, Close: 20, Cost: 10, Types: []int{1}},
			{ID: 2, X: 20, Duration: 5, Score: 7, Open: 0, Close: 60, Cost: 10, Types: []int{1, 2}},
			{ID: 3, Y: 10, Duration: 5, Score: 5, Open: 0, Close: 60, Cost: 10, Types: []int{2}},
			{ID: 4, Y: 25, Duration: 5, Score: 1, Open: 0, Close: 60, Cost: 1, Types: []int{2}},
		},
	})
	if err != nil {
		t.Fatalf("index.New() error = %v", err)
	}
	return idx
}

func TestDetect_ValidSolution(t *testing.T) {
	s := solution.New(testIndex(t), solution.Options{})
	if !s.Insert(1, 1, 0, 0) || !s.Insert(3, 2, 0, 1) {
		t.Fatal("Insert() = false, expected true")
	}

	conflicts := Detect(s)

	// 合法解不应有冲突
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s", c.Message)
		}
	}
}

func TestDetect_IncompletePattern(t *testing.T) {
	s := solution.New(testIndex(t), solution.Options{})
	s.Insert(1, 1, 0, 0)

	summary := Summary(Detect(s))
	if summary[ConflictPattern] != 1 {
		t.Errorf("pattern conflicts = %d, expected 1", summary[ConflictPattern])
	}
}

func TestDetectAll(t *testing.T) {
	idx := testIndex(t)

	tests := []struct {
		name     string
		policy   solution.WindowPolicy
		tours    [][]solution.Visit
		expected ConflictType
	}{
		{
			name:     "超出预算",
			tours:    [][]solution.Visit{{{ID: 1, Type: 1}, {ID: 2, Type: 1}}, {{ID: 3, Type: 2}}},
			expected: ConflictBudget,
		},
		{
			name:     "类别超限",
			tours:    [][]solution.Visit{{{ID: 1, Type: 1}}, {{ID: 3, Type: 2}, {ID: 4, Type: 2}}},
			expected: ConflictTypeCap,
		},
		{
			name:     "类别不可接受",
			tours:    [][]solution.Visit{{{ID: 1, Type: 2}}, {{ID: 3, Type: 2}}},
			expected: ConflictBadType,
		},
		{
			name:     "重复访问",
			tours:    [][]solution.Visit{{{ID: 2, Type: 1}}, {{ID: 2, Type: 2}}},
			expected: ConflictDuplicate,
		},
		{
			name:     "未知兴趣点",
			tours:    [][]solution.Visit{{{ID: 9, Type: 1}}, {}},
			expected: ConflictUnknown,
		},
		{
			// 2 结束于 25，再到 1 需要 10，到达 35 晚于关闭时间 20
			name:     "错过营业时间",
			tours:    [][]solution.Visit{{{ID: 2, Type: 1}, {ID: 1, Type: 1}}, {{ID: 4, Type: 2}}},
			expected: ConflictWindow,
		},
		{
			// 3、4 之后再前往 2，返回仓库晚于 60
			name:     "无法按时返回",
			tours:    [][]solution.Visit{{{ID: 1, Type: 1}}, {{ID: 3, Type: 2}, {ID: 4, Type: 2}, {ID: 2, Type: 1}}},
			expected: ConflictDeadline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewConflictDetector(&DetectorConfig{WindowPolicy: tt.policy, CheckPatterns: true})
			summary := Summary(d.DetectAll(idx, tt.tours))
			if summary[tt.expected] == 0 {
				t.Errorf("DetectAll() = %v, expected a %s conflict", summary, tt.expected)
			}
		})
	}
}

func TestDetectAll_WindowPolicy(t *testing.T) {
	idx := testIndex(t)
	// 1 到达 10，结束 15
	tours := [][]solution.Visit{{{ID: 1, Type: 1}}, {{ID: 3, Type: 2}}}

	start := NewConflictDetector(nil).DetectAll(idx, tours)
	if len(start) != 0 {
		t.Errorf("start policy conflicts = %d, expected 0", len(start))
	}

	shifted := testIndex(t)
	shifted.POI(1).Close = 12
	end := NewConflictDetector(&DetectorConfig{WindowPolicy: solution.EndBeforeClose}).DetectAll(shifted, tours)
	if Summary(end)[ConflictWindow] != 1 {
		t.Errorf("end policy window conflicts = %d, expected 1", Summary(end)[ConflictWindow])
	}
}

func TestDetectAll_TourCountMismatch(t *testing.T) {
	conflicts := NewConflictDetector(nil).DetectAll(testIndex(t), [][]solution.Visit{{}})
	if len(conflicts) != 1 {
		t.Errorf("Expected 1 conflict, got %d", len(conflicts))
	}
}
