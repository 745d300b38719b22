package model

import (
	"fmt"
	"strings"
)

// POI 兴趣点
type POI struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Duration float64 `json:"duration"`
	Score    float64 `json:"score"`
	Open     float64 `json:"open"`
	Close    float64 `json:"close"`
	Cost     float64 `json:"cost"`
	Types    []int   `json:"types"` // 可接受的类别，1 起始
}

// Location 返回坐标
func (p *POI) Location() Point {
	return Point{X: p.X, Y: p.Y}
}

// Window 返回营业时间窗口
func (p *POI) Window() TimeWindow {
	return TimeWindow{Open: p.Open, Close: p.Close}
}

// IsDepot 是否为仓库
func (p *POI) IsDepot() bool {
	return p.ID == DepotID
}

// HasType 检查是否接受某类别
func (p *POI) HasType(t int) bool {
	for _, pt := range p.Types {
		if pt == t {
			return true
		}
	}
	return false
}

// String 实现 Stringer
func (p *POI) String() string {
	types := make([]string, len(p.Types))
	for i, t := range p.Types {
		types[i] = fmt.Sprint(t)
	}
	return fmt.Sprintf("Id: %d, X: %g, Y: %g, Duration: %g, Score: %g, Open: %g, Close: %g, Cost: %g, Type: %s",
		p.ID, p.X, p.Y, p.Duration, p.Score, p.Open, p.Close, p.Cost, strings.Join(types, ","))
}
