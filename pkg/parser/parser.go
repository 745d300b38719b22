// Package parser 解析 MCTOPP 文本格式的问题实例
//
// 文件结构：
//
//	T N budget
//	cap_1 cap_2 ... cap_k
//	len_1 ... len_T
//	pattern_1 (T 行，每行取前 len_i 个值)
//	id x y duration score open close cost f_1 ... f_k (每个兴趣点一行)
//
// f_i 为 0/1 标记，第 i 个标记为 1 表示可接受类别 i。
package parser

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/tourplan/tourplan/pkg/errors"
	"github.com/tourplan/tourplan/pkg/model"
)

// 兴趣点记录的固定字段数（不含类别标记）
const (
	fieldsWithoutCost = 7
	fieldsWithCost    = 8
)

// Parse 从读取器解析问题实例
func Parse(r io.Reader) (*model.Problem, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	p := &model.Problem{}
	var patternLengths []int
	section := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)

		switch {
		case section == 0:
			if err := parseHeader(p, fields, lineNo); err != nil {
				return nil, err
			}
		case section == 1:
			caps, err := parseInts(fields, lineNo)
			if err != nil {
				return nil, err
			}
			p.MaxPerType = caps
		case section == 2:
			lengths, err := parseInts(fields, lineNo)
			if err != nil {
				return nil, err
			}
			if len(lengths) < p.TourCount {
				return nil, apperrors.InputMalformed(lineNo,
					fmt.Sprintf("模式长度数量 %d 少于路线数量 %d", len(lengths), p.TourCount))
			}
			patternLengths = lengths
		case section < 3+p.TourCount:
			tour := section - 3
			pattern, err := parseInts(fields, lineNo)
			if err != nil {
				return nil, err
			}
			if len(pattern) < patternLengths[tour] {
				return nil, apperrors.InputMalformed(lineNo,
					fmt.Sprintf("路线 %d 的模式长度不足 %d", tour, patternLengths[tour]))
			}
			p.Patterns = append(p.Patterns, pattern[:patternLengths[tour]])
		default:
			poi, err := parsePOI(fields, lineNo)
			if err != nil {
				return nil, err
			}
			p.POIs = append(p.POIs, *poi)
		}
		section++
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInputMalformed, "读取实例失败")
	}

	if section < 3+p.TourCount {
		return nil, apperrors.InputMalformed(lineNo, "实例在模式定义结束前截断")
	}
	if len(p.POIs) == 0 {
		return nil, apperrors.InputMalformed(lineNo, "实例不包含兴趣点")
	}
	if n := countPOIs(p); n != p.POICount {
		return nil, apperrors.InputMalformed(lineNo,
			fmt.Sprintf("首行声明 %d 个兴趣点，实际读取 %d 个", p.POICount, n))
	}
	return p, nil
}

// countPOIs 返回仓库以外的兴趣点记录数
func countPOIs(p *model.Problem) int {
	n := 0
	for i := range p.POIs {
		if !p.POIs[i].IsDepot() {
			n++
		}
	}
	return n
}

// parseHeader 解析首行：路线数、兴趣点数、预算
func parseHeader(p *model.Problem, fields []string, lineNo int) error {
	if len(fields) < 3 {
		return apperrors.InputMalformed(lineNo, fmt.Sprintf("首行需要3个字段，实际 %d 个", len(fields)))
	}
	values, err := parseFloats(fields[:3], lineNo)
	if err != nil {
		return err
	}
	p.TourCount = int(values[0])
	p.POICount = int(values[1])
	p.Budget = values[2]
	if p.TourCount < 1 {
		return apperrors.InputMalformed(lineNo, "路线数量必须大于0")
	}
	return nil
}

// parsePOI 解析兴趣点记录
func parsePOI(fields []string, lineNo int) (*model.POI, error) {
	values, err := parseFloats(fields, lineNo)
	if err != nil {
		return nil, err
	}
	if len(values) < fieldsWithoutCost {
		return nil, apperrors.InputMalformed(lineNo,
			fmt.Sprintf("兴趣点记录字段数量 %d 不足", len(values))).WithField("id", fields[0])
	}

	poi := &model.POI{
		ID:       int(values[0]),
		X:        values[1],
		Y:        values[2],
		Duration: values[3],
		Score:    values[4],
		Open:     values[5],
		Close:    values[6],
	}
	if len(values) >= fieldsWithCost {
		poi.Cost = values[7]
	}
	if len(values) > fieldsWithCost {
		for i, flag := range values[fieldsWithCost:] {
			if flag == 1 {
				poi.Types = append(poi.Types, i+1)
			}
		}
	}

	if !poi.IsDepot() && len(poi.Types) == 0 {
		return nil, apperrors.InputMalformed(lineNo,
			fmt.Sprintf("兴趣点 %d 没有可接受的类别标记", poi.ID)).WithField("id", poi.ID)
	}
	return poi, nil
}

// parseInts 解析整数列表
func parseInts(fields []string, lineNo int) ([]int, error) {
	values, err := parseFloats(fields, lineNo)
	if err != nil {
		return nil, err
	}
	result := make([]int, len(values))
	for i, v := range values {
		if v != math.Trunc(v) {
			return nil, apperrors.InputMalformed(lineNo, fmt.Sprintf("字段 '%s' 不是整数", fields[i]))
		}
		result[i] = int(v)
	}
	return result, nil
}

// parseFloats 解析数值列表
func parseFloats(fields []string, lineNo int) ([]float64, error) {
	result := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, apperrors.InputMalformed(lineNo, fmt.Sprintf("字段 '%s' 不是数值", f)).WithCause(err)
		}
		result[i] = v
	}
	return result, nil
}
