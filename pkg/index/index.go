// Package index 构建问题实例的只读预计算表
//
// Index 在实例解析后构建一次，之后由同一实例派生的所有 Solution 共享引用，
// 任何方法都不会修改其内容，因此可以跨克隆、跨协程安全读取。
package index

import (
	"fmt"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

// Index 预计算索引
type Index struct {
	problem *model.Problem

	ids     []int       // 行号 -> 兴趣点编号
	rows    map[int]int // 兴趣点编号 -> 行号
	travel  [][]float64 // 对称欧氏距离矩阵
	average []float64   // 每个兴趣点到其余兴趣点的平均行程时间

	maxOfType map[int]int
	patterns  [][]int

	startTime float64
	endTime   float64
}

// New 从问题实例构建索引
func New(p *model.Problem) (*Index, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := len(p.POIs)
	idx := &Index{
		problem:   p,
		ids:       make([]int, n),
		rows:      make(map[int]int, n),
		travel:    make([][]float64, n),
		average:   make([]float64, n),
		maxOfType: make(map[int]int, len(p.MaxPerType)),
		patterns:  make([][]int, len(p.Patterns)),
	}

	for i := range p.POIs {
		idx.ids[i] = p.POIs[i].ID
		idx.rows[p.POIs[i].ID] = i
	}

	for i := 0; i < n; i++ {
		idx.travel[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		a := p.POIs[i].Location()
		for j := i + 1; j < n; j++ {
			d := a.Distance(p.POIs[j].Location())
			idx.travel[i][j] = d
			idx.travel[j][i] = d
		}
	}

	if n > 1 {
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += idx.travel[i][j]
			}
			idx.average[i] = sum / float64(n-1)
		}
	}

	for k, limit := range p.MaxPerType {
		idx.maxOfType[k+1] = limit
	}
	for t, pattern := range p.Patterns {
		idx.patterns[t] = append([]int(nil), pattern...)
	}

	depot := p.Depot()
	idx.startTime = depot.Open
	idx.endTime = depot.Close

	return idx, nil
}

// MustNew 构建索引，失败时 panic，仅用于测试和示例
func MustNew(p *model.Problem) *Index {
	idx, err := New(p)
	if err != nil {
		panic(fmt.Sprintf("index: %v", err))
	}
	return idx
}

// row 返回兴趣点所在行，缺失视为编程错误
func (x *Index) row(id int) int {
	r, ok := x.rows[id]
	if !ok {
		panic(apperrors.New(apperrors.CodeInternal, fmt.Sprintf("索引中不存在兴趣点 %d", id)))
	}
	return r
}

// Problem 返回原始实例
func (x *Index) Problem() *model.Problem { return x.problem }

// Has 检查兴趣点是否存在
func (x *Index) Has(id int) bool {
	_, ok := x.rows[id]
	return ok
}

// IDs 返回除仓库外的全部兴趣点编号（实例顺序）
func (x *Index) IDs() []int {
	result := make([]int, 0, len(x.ids))
	for _, id := range x.ids {
		if id != model.DepotID {
			result = append(result, id)
		}
	}
	return result
}

// POI 返回兴趣点
func (x *Index) POI(id int) *model.POI { return &x.problem.POIs[x.row(id)] }

// Travel 返回两点间行程时间
func (x *Index) Travel(from, to int) float64 { return x.travel[x.row(from)][x.row(to)] }

// TravelAverage 返回到其余兴趣点的平均行程时间
func (x *Index) TravelAverage(id int) float64 { return x.average[x.row(id)] }

// Cost 返回费用
func (x *Index) Cost(id int) float64 { return x.POI(id).Cost }

// Duration 返回游览时长
func (x *Index) Duration(id int) float64 { return x.POI(id).Duration }

// Score 返回得分
func (x *Index) Score(id int) float64 { return x.POI(id).Score }

// Window 返回营业时间窗口
func (x *Index) Window(id int) model.TimeWindow { return x.POI(id).Window() }

// Types 返回可接受类别
func (x *Index) Types(id int) []int { return x.POI(id).Types }

// MaxOfType 返回类别的全局访问上限，未知类别返回0
func (x *Index) MaxOfType(t int) int { return x.maxOfType[t] }

// TypeCount 返回类别数量
func (x *Index) TypeCount() int { return len(x.maxOfType) }

// Pattern 返回路线的必访类别序列
func (x *Index) Pattern(tour int) []int { return x.patterns[tour] }

// TourCount 返回路线数量
func (x *Index) TourCount() int { return x.problem.TourCount }

// Budget 返回费用预算
func (x *Index) Budget() float64 { return x.problem.Budget }

// StartTime 返回路线开始时间
func (x *Index) StartTime() float64 { return x.startTime }

// EndTime 返回路线截止时间
func (x *Index) EndTime() float64 { return x.endTime }

// TimeBudget 返回路线可用时长
func (x *Index) TimeBudget() float64 { return x.endTime - x.startTime }

// Name 返回实例名称
func (x *Index) Name() string { return x.problem.Name }
