// Package optional 提供 PATCH 语义所需的“可缺省字段”包装类型。
//
// Value 区分“未提供”与“提供了零值/null”，
// 例如 first_name 为 "" 与请求中根本没有 first_name 是两种不同的输入。
package optional

import "encoding/json"

// Value 保存一个可能缺省的字段。Set 为 false 表示调用方没有提供。
type Value[T any] struct {
	V   T
	Set bool
}

// Of 返回已设置的 Value。
func Of[T any](v T) Value[T] {
	return Value[T]{V: v, Set: true}
}

// Get 返回值以及是否被设置。
func (o Value[T]) Get() (T, bool) {
	return o.V, o.Set
}

// UnmarshalJSON 只要字段出现在 JSON 中（包括 null）就标记为已设置。
func (o *Value[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.V = v
	o.Set = true
	return nil
}

// MarshalJSON 输出内部值；未设置时输出 null。
func (o Value[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.V)
}
