package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeDatabaseError, "写入失败")

	if !strings.Contains(err.Error(), "DATABASE_ERROR") {
		t.Errorf("Error() = %q, expected code in message", err.Error())
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Error() = %q, expected cause in message", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is 应该能找到底层错误")
	}
}

func TestIsAndGetCode(t *testing.T) {
	err := PatternUnsatisfiable(1, []int{3, 5})

	if !Is(err, CodePatternUnsatisfiable) {
		t.Error("应该返回true")
	}
	if Is(err, CodeInputMalformed) {
		t.Error("应该返回false")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Error("普通错误应返回 UNKNOWN")
	}
	if got := err.Fields["tour"]; got != 1 {
		t.Errorf("Fields[tour] = %v, expected 1", got)
	}
	if !strings.Contains(err.Message, "[3,5]") {
		t.Errorf("Message = %q, expected pattern listed", err.Message)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "无错误", err: nil, expected: ExitOK},
		{name: "格式错误", err: InputMalformed(4, "字段数量不足"), expected: ExitInput},
		{name: "模式无法满足", err: PatternUnsatisfiable(0, []int{1}), expected: ExitInfeasible},
		{name: "无可行解", err: NoFeasibleSolution("empty"), expected: ExitInfeasible},
		{name: "解无效", err: InvalidSolution("budget"), expected: ExitInvalid},
		{name: "未知错误", err: errors.New("boom"), expected: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.expected {
				t.Errorf("ExitCode() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.HasErrors() {
		t.Error("新建集合不应有错误")
	}

	ve.Add("tour_count", "必须大于0")
	ve.Addf("poi[3]", "类型 %d 超出范围", 12)

	if !ve.HasErrors() {
		t.Fatal("应该有错误")
	}
	appErr := ve.ToAppError()
	if appErr.Code != CodeValidationFail {
		t.Errorf("Code = %v, expected %v", appErr.Code, CodeValidationFail)
	}
	if appErr.Fields["poi[3]"] != "类型 12 超出范围" {
		t.Errorf("Fields[poi[3]] = %v", appErr.Fields["poi[3]"])
	}
}
