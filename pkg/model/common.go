// Package model 定义求解器的核心数据模型
package model

import (
	"math"
)

// DepotID 仓库（起终点）的固定编号
const DepotID = 0

// Point 平面坐标
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance 计算两点间的欧氏距离
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// TimeWindow 时间窗口
type TimeWindow struct {
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
}

// Length 返回窗口长度
func (w TimeWindow) Length() float64 {
	return w.Close - w.Open
}

// Contains 检查时间点是否落在窗口内（含边界）
func (w TimeWindow) Contains(t float64) bool {
	return t >= w.Open && t <= w.Close
}

// Valid 检查窗口是否合法
func (w TimeWindow) Valid() bool {
	return w.Close >= w.Open
}
