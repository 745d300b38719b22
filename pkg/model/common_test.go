package model

import (
	"testing"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
)

func TestPoint_Distance(t *testing.T) {
	tests := []struct {
		name     string
		p1       Point
		p2       Point
		expected float64
	}{
		{name: "同一位置", p1: Point{1, 1}, p2: Point{1, 1}, expected: 0},
		{name: "勾股数", p1: Point{0, 0}, p2: Point{3, 4}, expected: 5},
		{name: "负坐标", p1: Point{-1, -1}, p2: Point{2, 3}, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.p1.Distance(tt.p2); result != tt.expected {
				t.Errorf("Distance() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestTimeWindow(t *testing.T) {
	w := TimeWindow{Open: 10, Close: 20}

	if w.Length() != 10 {
		t.Errorf("Length() = %v, expected 10", w.Length())
	}
	if !w.Contains(20) || w.Contains(20.5) || w.Contains(9) {
		t.Error("Contains() 边界判断错误")
	}
	if (TimeWindow{Open: 5, Close: 1}).Valid() {
		t.Error("关闭早于开放的窗口应不合法")
	}
}

func TestPOI_HasType(t *testing.T) {
	p := POI{ID: 3, Types: []int{2, 5}}

	if !p.HasType(5) {
		t.Error("应该返回true")
	}
	if p.HasType(1) {
		t.Error("应该返回false")
	}
	if p.IsDepot() {
		t.Error("编号3不是仓库")
	}
}

func validProblem() *Problem {
	return &Problem{
		TourCount:  1,
		POICount:   2,
		Budget:     100,
		MaxPerType: []int{1, 1},
		Patterns:   [][]int{{1}},
		POIs: []POI{
			{ID: 0, Open: 0, Close: 100},
			{ID: 1, X: 1, Duration: 2, Score: 5, Open: 0, Close: 50, Cost: 3, Types: []int{1}},
		},
	}
}

func TestProblem_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Problem)
		valid  bool
	}{
		{name: "合法实例", mutate: func(p *Problem) {}, valid: true},
		{name: "缺少仓库", mutate: func(p *Problem) { p.POIs = p.POIs[1:] }},
		{name: "模式数量不一致", mutate: func(p *Problem) { p.TourCount = 2 }},
		{name: "类别超出范围", mutate: func(p *Problem) { p.POIs[1].Types = []int{3} }},
		{name: "无类别", mutate: func(p *Problem) { p.POIs[1].Types = nil }},
		{name: "编号重复", mutate: func(p *Problem) { p.POIs = append(p.POIs, p.POIs[1]) }},
		{name: "时间窗口倒置", mutate: func(p *Problem) { p.POIs[1].Open = 60 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProblem()
			tt.mutate(p)
			err := p.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, expected nil", err)
			}
			if !tt.valid && !apperrors.Is(err, apperrors.CodeValidationFail) {
				t.Errorf("Validate() = %v, expected validation failure", err)
			}
		})
	}
}

func TestProblem_Lookup(t *testing.T) {
	p := validProblem()

	if p.Depot() == nil || p.Depot().ID != DepotID {
		t.Fatal("Depot() 应返回编号0")
	}
	if p.POI(1).Score != 5 {
		t.Errorf("POI(1).Score = %v, expected 5", p.POI(1).Score)
	}
	if p.POI(42) != nil {
		t.Error("不存在的编号应返回nil")
	}
}
