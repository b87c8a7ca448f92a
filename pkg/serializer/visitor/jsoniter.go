package visitor

import (
	jsoniter "github.com/json-iterator/go"
)

var compat = jsoniter.ConfigCompatibleWithStandardLibrary

// CompatJSON 使用 json-iterator 的标准库兼容配置编解码 JSON。
// 与 JSON 不同，解码时数字统一为 float64，行为与 encoding/json 一致。
type CompatJSON struct{}

var (
	_ SerializationVisitor   = CompatJSON{}
	_ DeserializationVisitor = CompatJSON{}
)

func (CompatJSON) Encode(data any) ([]byte, error) {
	return compat.Marshal(data)
}

func (CompatJSON) Decode(data []byte) (any, error) {
	var v any
	if err := compat.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
