// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 求解相关
	CodeInputMalformed       Code = "INPUT_MALFORMED"
	CodePatternUnsatisfiable Code = "PATTERN_UNSATISFIABLE"
	CodeNoFeasibleSolution   Code = "NO_FEASIBLE_SOLUTION"
	CodeInvalidSolution      Code = "INVALID_SOLUTION"
	CodeConstraintViolation  Code = "CONSTRAINT_VIOLATION"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// 进程退出码
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitInput      = 2
	ExitInfeasible = 3
	ExitInvalid    = 4
)

// AppError 应用错误
type AppError struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Cause   error                  `json:"-"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// ExitCode 错误码转进程退出码
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCode(err) {
	case CodeInvalidInput, CodeInputMalformed, CodeValidationFail:
		return ExitInput
	case CodePatternUnsatisfiable, CodeNoFeasibleSolution:
		return ExitInfeasible
	case CodeInvalidSolution, CodeConstraintViolation:
		return ExitInvalid
	default:
		return ExitFailure
	}
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason)).
		WithField("field", field)
}

// InputMalformed 创建实例记录格式错误
func InputMalformed(line int, reason string) *AppError {
	return New(CodeInputMalformed, fmt.Sprintf("第 %d 行记录格式错误: %s", line, reason)).
		WithField("line", line)
}

// PatternUnsatisfiable 创建模式无法满足错误
func PatternUnsatisfiable(tour int, pattern []int) *AppError {
	parts := make([]string, len(pattern))
	for i, t := range pattern {
		parts[i] = fmt.Sprint(t)
	}
	return New(CodePatternUnsatisfiable, fmt.Sprintf("路线 %d 的必访模式 [%s] 无法满足", tour, strings.Join(parts, ","))).
		WithField("tour", tour).
		WithField("pattern", pattern)
}

// NoFeasibleSolution 创建无可行解错误
func NoFeasibleSolution(reason string) *AppError {
	return New(CodeNoFeasibleSolution, reason)
}

// InvalidSolution 创建解无效错误
func InvalidSolution(details string) *AppError {
	return New(CodeInvalidSolution, "求解结果未通过校验").WithDetails(details)
}

// ConstraintViolation 创建约束违反错误
func ConstraintViolation(constraint, details string) *AppError {
	return New(CodeConstraintViolation, fmt.Sprintf("违反约束 '%s': %s", constraint, details))
}

// 预定义错误
var (
	ErrInvalidInput       = New(CodeInvalidInput, "输入参数无效")
	ErrNotFound           = New(CodeNotFound, "资源不存在")
	ErrInternal           = New(CodeInternal, "内部错误")
	ErrTimeout            = New(CodeTimeout, "求解超时")
	ErrNoFeasibleSolution = New(CodeNoFeasibleSolution, "无可行解")
)

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// Addf 添加格式化的验证错误
func (ve *ValidationErrors) Addf(field, format string, args ...interface{}) {
	ve.Add(field, fmt.Sprintf(format, args...))
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeValidationFail, "验证失败")
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	if len(ve.Errors) > 0 {
		err.Details = fmt.Sprintf("%s: %s", ve.Errors[0].Field, ve.Errors[0].Message)
	}
	return err
}
