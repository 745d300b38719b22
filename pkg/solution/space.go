package solution

import "fmt"

// epsilon 时间与费用比较的容差
const epsilon = 1e-9

// WindowPolicy 兴趣点自身时间窗口的可行性规则
type WindowPolicy int

const (
	// StartBeforeClose 开始游览不晚于关闭时间，允许游览超出关闭时间
	StartBeforeClose WindowPolicy = iota
	// EndBeforeClose 游览结束不晚于关闭时间
	EndBeforeClose
)

// String 实现 Stringer
func (p WindowPolicy) String() string {
	switch p {
	case StartBeforeClose:
		return "start"
	case EndBeforeClose:
		return "end"
	default:
		return fmt.Sprintf("WindowPolicy(%d)", int(p))
	}
}

// ParseWindowPolicy 解析窗口规则名称
func ParseWindowPolicy(s string) (WindowPolicy, error) {
	switch s {
	case "", "start", "start-before-close":
		return StartBeforeClose, nil
	case "end", "end-before-close":
		return EndBeforeClose, nil
	default:
		return StartBeforeClose, fmt.Errorf("未知的窗口规则: %s", s)
	}
}

// FilledSpace 一个兴趣点在路线中占用的时间区间：从前驱出发到游览结束
type FilledSpace struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Size 返回区间长度（行程 + 游览）
func (f FilledSpace) Size() float64 {
	return f.End - f.Start
}

// EmptySpace 相邻占用区间之间的空闲区间
//
// Before/After 为前后兴趣点在路线中的位置，-1 表示仓库一侧。
type EmptySpace struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Before int     `json:"before"`
	After  int     `json:"after"`
}

// Size 返回空闲长度
func (e EmptySpace) Size() float64 {
	return e.End - e.Start
}

// Position 返回在该空闲区间插入时使用的位置
func (e EmptySpace) Position(tourLen int) int {
	if e.After > -1 {
		return e.After
	}
	return tourLen
}
