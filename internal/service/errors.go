// Package service 包含了应用的业务逻辑层。
package service

import "errors"

var (
	// ErrInputError 表示请求参数不合法，对应 HTTP 400。
	ErrInputError = errors.New("input error")
	// ErrAccountExists 表示邮箱已经注册过账号。
	ErrAccountExists = errors.New("account already exists")
	// ErrUnauthorized 表示凭证不正确。
	ErrUnauthorized = errors.New("unauthorized")
)
