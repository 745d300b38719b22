// Package validator 提供游览方案验证功能
package validator

import (
	"fmt"

	"github.com/tourplan/tourplan/pkg/index"
	"github.com/tourplan/tourplan/pkg/model"
	"github.com/tourplan/tourplan/pkg/solution"
)

// epsilon 浮点比较容差
const epsilon = 1e-9

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictBudget    ConflictType = "budget"    // 超出费用预算
	ConflictTypeCap   ConflictType = "type_cap"  // 类别访问次数超限
	ConflictBadType   ConflictType = "type"      // 类别不可接受
	ConflictWindow    ConflictType = "window"    // 错过营业时间
	ConflictDeadline  ConflictType = "deadline"  // 无法按时返回仓库
	ConflictPattern   ConflictType = "pattern"   // 未满足必访模式
	ConflictDuplicate ConflictType = "duplicate" // 兴趣点重复访问
	ConflictUnknown   ConflictType = "unknown"   // 兴趣点不存在
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Tour     int          `json:"tour"`     // -1 表示全局
	POI      int          `json:"poi"`      // -1 表示与具体兴趣点无关
	Message  string       `json:"message"`
}

// ConflictDetector 冲突检测器
//
// 不依赖 Solution 内部维护的区间和计数，从访问序列重新推导全部约束。
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	WindowPolicy  solution.WindowPolicy // 时间窗口规则
	CheckPatterns bool                  // 是否检查必访模式
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		WindowPolicy:  solution.StartBeforeClose,
		CheckPatterns: true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// Detect 使用解自身的窗口规则检测冲突
func Detect(sol *solution.Solution) []Conflict {
	d := NewConflictDetector(&DetectorConfig{
		WindowPolicy:  sol.Options().WindowPolicy,
		CheckPatterns: true,
	})
	return d.DetectAll(sol.Index(), sol.Dump())
}

// DetectAll 检测所有冲突
func (d *ConflictDetector) DetectAll(idx *index.Index, tours [][]solution.Visit) []Conflict {
	var conflicts []Conflict

	if len(tours) != idx.TourCount() {
		conflicts = append(conflicts, Conflict{
			Type:     ConflictPattern,
			Severity: "error",
			Tour:     -1,
			POI:      -1,
			Message:  fmt.Sprintf("路线数量 %d 与实例 %d 不一致", len(tours), idx.TourCount()),
		})
		return conflicts
	}

	seen := make(map[int]int)
	counts := make(map[int]int)
	var cost float64

	for t, visits := range tours {
		known := make([]solution.Visit, 0, len(visits))
		for _, v := range visits {
			if v.ID == model.DepotID || !idx.Has(v.ID) {
				conflicts = append(conflicts, newConflict(ConflictUnknown, t, v.ID, "兴趣点 %d 不存在或为仓库", v.ID))
				continue
			}
			if prev, ok := seen[v.ID]; ok {
				conflicts = append(conflicts, newConflict(ConflictDuplicate, t, v.ID, "兴趣点 %d 已在路线 %d 中访问", v.ID, prev))
			}
			seen[v.ID] = t
			if !idx.POI(v.ID).HasType(v.Type) {
				conflicts = append(conflicts, newConflict(ConflictBadType, t, v.ID, "兴趣点 %d 不接受类别 %d", v.ID, v.Type))
			}
			counts[v.Type]++
			cost += idx.Cost(v.ID)
			known = append(known, v)
		}

		conflicts = append(conflicts, d.detectTiming(idx, t, known)...)
		if d.config.CheckPatterns {
			conflicts = append(conflicts, detectPattern(idx, t, known)...)
		}
	}

	if cost > idx.Budget()+epsilon {
		conflicts = append(conflicts, newConflict(ConflictBudget, -1, -1, "总费用 %.2f 超过预算 %.2f", cost, idx.Budget()))
	}
	for typ, n := range counts {
		if n > idx.MaxOfType(typ) {
			conflicts = append(conflicts, newConflict(ConflictTypeCap, -1, -1, "类别 %d 访问 %d 次，超过上限 %d", typ, n, idx.MaxOfType(typ)))
		}
	}

	return conflicts
}

// detectTiming 按顺序模拟路线，检测营业时间和返回期限
func (d *ConflictDetector) detectTiming(idx *index.Index, t int, visits []solution.Visit) []Conflict {
	var conflicts []Conflict

	prev, clock := model.DepotID, idx.StartTime()
	for _, v := range visits {
		w := idx.Window(v.ID)
		arrival := clock + idx.Travel(prev, v.ID)
		if arrival < w.Open {
			arrival = w.Open
		}
		end := arrival + idx.Duration(v.ID)

		late := arrival > w.Close+epsilon
		if d.config.WindowPolicy == solution.EndBeforeClose {
			late = end > w.Close+epsilon
		}
		if late {
			conflicts = append(conflicts, newConflict(ConflictWindow, t, v.ID, "兴趣点 %d 在 %.2f 到达，关闭时间 %.2f", v.ID, arrival, w.Close))
		}
		prev, clock = v.ID, end
	}

	if len(visits) > 0 {
		back := clock + idx.Travel(prev, model.DepotID)
		if back > idx.EndTime()+epsilon {
			conflicts = append(conflicts, newConflict(ConflictDeadline, t, -1, "路线 %d 在 %.2f 返回仓库，截止时间 %.2f", t, back, idx.EndTime()))
		}
	}
	return conflicts
}

// detectPattern 检测路线类别序列是否按序包含必访模式
func detectPattern(idx *index.Index, t int, visits []solution.Visit) []Conflict {
	pattern := idx.Pattern(t)
	matched := 0
	for _, v := range visits {
		if matched < len(pattern) && v.Type == pattern[matched] {
			matched++
		}
	}
	if matched == len(pattern) {
		return nil
	}
	return []Conflict{newConflict(ConflictPattern, t, -1, "路线 %d 只满足模式 %v 的前 %d 项", t, pattern, matched)}
}

// newConflict 创建错误级冲突
func newConflict(typ ConflictType, tour, poi int, format string, args ...interface{}) Conflict {
	return Conflict{
		Type:     typ,
		Severity: "error",
		Tour:     tour,
		POI:      poi,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Summary 按类型统计冲突数量
func Summary(conflicts []Conflict) map[ConflictType]int {
	result := make(map[ConflictType]int)
	for _, c := range conflicts {
		result[c.Type]++
	}
	return result
}
