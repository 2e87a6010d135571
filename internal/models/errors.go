package models

import "errors"

// 预期失败模式使用哨兵错误表达：校验失败与越权在任何存储被修改之前
// 返回；目标不存在的操作返回 nil/false 而不是错误。
var (
	// ErrInvalidInput 表示输入不合法（缺少必填字段、end 不晚于 start 等）。
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized 表示调用者不是目标记录的所有者。
	ErrUnauthorized = errors.New("not authorized")
)
