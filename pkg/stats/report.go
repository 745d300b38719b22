// Package stats 提供游览方案统计分析功能
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/solution"
)

// Report 方案统计报告
type Report struct {
	Tours       []TourStats `json:"tours"`
	TotalScore  float64     `json:"total_score"`
	TotalCost   float64     `json:"total_cost"`
	BudgetUsage float64     `json:"budget_usage"` // 预算使用率 (%)
	Visited     int         `json:"visited"`      // 已访问兴趣点数量
	Unvisited   int         `json:"unvisited"`    // 未访问兴趣点数量
	ScoreGini   float64     `json:"score_gini"`   // 各路线得分的基尼系数
	TypeUsage   map[int]int `json:"type_usage"`   // 每个类别的访问次数
}

// TourStats 单条路线统计
type TourStats struct {
	Tour        int     `json:"tour"`
	Visits      int     `json:"visits"`
	Score       float64 `json:"score"`
	Cost        float64 `json:"cost"`
	TravelTime  float64 `json:"travel_time"`
	WaitTime    float64 `json:"wait_time"`
	VisitTime   float64 `json:"visit_time"`
	Utilization float64 `json:"utilization"` // 路线时长占时间预算的比例 (%)
}

// Analyze 统计方案
func Analyze(sol *solution.Solution) Report {
	idx := sol.Index()
	report := Report{
		Tours:      make([]TourStats, sol.TourCount()),
		TotalScore: sol.Score(),
		TotalCost:  sol.Cost(),
		Visited:    sol.VisitedCount(),
		Unvisited:  len(idx.IDs()) - sol.VisitedCount(),
		TypeUsage:  make(map[int]int),
	}
	if idx.Budget() > 0 {
		report.BudgetUsage = sol.Cost() * 100 / idx.Budget()
	}

	scores := make([]float64, sol.TourCount())
	for t := 0; t < sol.TourCount(); t++ {
		ts := TourStats{Tour: t, Visits: sol.Len(t)}

		prev := model.DepotID
		for _, id := range sol.Tour(t) {
			fs, _ := sol.Filled(t, id)
			travel := idx.Travel(prev, id)
			ts.TravelTime += travel
			ts.VisitTime += idx.Duration(id)
			// 占用区间 = 行程 + 游览，其余为开门前的等待
			ts.WaitTime += math.Max(0, fs.Start-prevEnd(sol, t, prev))
			ts.Score += idx.Score(id)
			ts.Cost += idx.Cost(id)
			prev = id

			if typ, ok := sol.TypeOf(id); ok {
				report.TypeUsage[typ]++
			}
		}
		if ts.Visits > 0 {
			ts.TravelTime += idx.Travel(prev, model.DepotID)
		}
		if idx.TimeBudget() > 0 {
			ts.Utilization = sol.Duration(t) * 100 / idx.TimeBudget()
		}

		report.Tours[t] = ts
		scores[t] = ts.Score
	}
	report.ScoreGini = calculateGini(scores)
	return report
}

// prevEnd 返回前驱的结束时间，仓库为路线开始时间
func prevEnd(sol *solution.Solution, t, prev int) float64 {
	if prev == model.DepotID {
		return sol.Index().StartTime()
	}
	fs, _ := sol.Filled(t, prev)
	return fs.End
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// GenerateReport 生成文本报告
func GenerateReport(r Report) string {
	var b strings.Builder
	b.WriteString("=== 方案统计报告 ===\n\n")

	b.WriteString("【整体情况】\n")
	fmt.Fprintf(&b, "  总得分: %.2f\n", r.TotalScore)
	fmt.Fprintf(&b, "  总费用: %.2f (预算使用 %.1f%%)\n", r.TotalCost, r.BudgetUsage)
	fmt.Fprintf(&b, "  已访问: %d, 未访问: %d\n", r.Visited, r.Unvisited)
	fmt.Fprintf(&b, "  路线得分基尼系数: %.3f\n\n", r.ScoreGini)

	b.WriteString("【路线】\n")
	for _, ts := range r.Tours {
		fmt.Fprintf(&b, "  - 路线 %d: %d 个兴趣点, 得分 %.2f, 行程 %.2f, 等待 %.2f, 游览 %.2f, 时间利用率 %.1f%%\n",
			ts.Tour, ts.Visits, ts.Score, ts.TravelTime, ts.WaitTime, ts.VisitTime, ts.Utilization)
	}

	if len(r.TypeUsage) > 0 {
		types := make([]int, 0, len(r.TypeUsage))
		for typ := range r.TypeUsage {
			types = append(types, typ)
		}
		sort.Ints(types)
		b.WriteString("\n【类别】\n")
		for _, typ := range types {
			fmt.Fprintf(&b, "  - 类别 %d: %d 次\n", typ, r.TypeUsage[typ])
		}
	}

	return b.String()
}
