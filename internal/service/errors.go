// Package service 实现任务与用户的记录服务。
//
// 记录不存在不是错误：Get 系列方法返回 (nil, nil)，由 HTTP 层转换为 404。
package service

import "errors"

// ErrConflict 用户名或邮箱与已有用户重复。
var ErrConflict = errors.New("username or email already exists")
