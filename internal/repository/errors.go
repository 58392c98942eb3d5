package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反（冪等キーの重複など）
	ErrDuplicate = errors.New("duplicate")
)
