package visitor

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// YAML 使用 gopkg.in/yaml.v3 编解码，默认缩进两个空格。
type YAML struct {
	Indent int
}

var (
	_ SerializationVisitor   = YAML{}
	_ DeserializationVisitor = YAML{}
)

func (v YAML) Encode(data any) ([]byte, error) {
	indent := v.Indent
	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAML) Decode(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	// 非字符串键的映射会被解码为 map[any]any，整数为 int。
	return normalize(v), nil
}
