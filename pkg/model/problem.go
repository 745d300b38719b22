package model

import (
	apperrors "github.com/tourplan/tourplan/pkg/errors"
)

// Problem 问题实例（解析后只读）
type Problem struct {
	Name       string  `json:"name,omitempty"`
	TourCount  int     `json:"tour_count"`
	POICount   int     `json:"poi_count"`
	Budget     float64 `json:"budget"`
	MaxPerType []int   `json:"max_per_type"` // MaxPerType[k-1] 为类别 k 的上限
	Patterns   [][]int `json:"patterns"`     // 每条路线的必访类别序列
	POIs       []POI   `json:"pois"`
}

// TypeCount 返回类别数量
func (p *Problem) TypeCount() int {
	return len(p.MaxPerType)
}

// Depot 返回仓库
func (p *Problem) Depot() *POI {
	return p.POI(DepotID)
}

// POI 按编号查找兴趣点
func (p *Problem) POI(id int) *POI {
	for i := range p.POIs {
		if p.POIs[i].ID == id {
			return &p.POIs[i]
		}
	}
	return nil
}

// Validate 校验实例的结构完整性
func (p *Problem) Validate() error {
	ve := &apperrors.ValidationErrors{}

	if p.TourCount < 1 {
		ve.Add("tour_count", "必须大于0")
	}
	if len(p.Patterns) != p.TourCount {
		ve.Addf("patterns", "模式数量 %d 与路线数量 %d 不一致", len(p.Patterns), p.TourCount)
	}
	if p.Budget < 0 {
		ve.Add("budget", "不能为负数")
	}
	for i, pattern := range p.Patterns {
		for _, t := range pattern {
			if t < 1 || t > p.TypeCount() {
				ve.Addf("patterns", "路线 %d 的类别 %d 超出范围", i, t)
			}
		}
	}

	seen := make(map[int]bool, len(p.POIs))
	depot := false
	for i := range p.POIs {
		poi := &p.POIs[i]
		if seen[poi.ID] {
			ve.Addf("pois", "编号 %d 重复", poi.ID)
		}
		seen[poi.ID] = true
		if poi.IsDepot() {
			depot = true
			if !poi.Window().Valid() {
				ve.Add("depot", "时间窗口不合法")
			}
			continue
		}
		if len(poi.Types) == 0 {
			ve.Addf("pois", "编号 %d 没有可接受的类别", poi.ID)
		}
		for _, t := range poi.Types {
			if t < 1 || t > p.TypeCount() {
				ve.Addf("pois", "编号 %d 的类别 %d 超出范围", poi.ID, t)
			}
		}
		if poi.Duration < 0 || poi.Cost < 0 {
			ve.Addf("pois", "编号 %d 的时长或费用为负数", poi.ID)
		}
		if !poi.Window().Valid() {
			ve.Addf("pois", "编号 %d 的时间窗口不合法", poi.ID)
		}
	}
	if !depot {
		ve.Add("depot", "缺少编号为0的仓库")
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}
