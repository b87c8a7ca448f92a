package visitor

import (
	"github.com/lk2023060901/garden-serializer/internal/json"
)

// JSON 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
// Indent 非空时输出带缩进的 JSON。
type JSON struct {
	Indent string
}

// 编译期断言：确保 JSON 同时实现两个访问者接口。
var (
	_ SerializationVisitor   = JSON{}
	_ DeserializationVisitor = JSON{}
)

func (v JSON) Encode(data any) ([]byte, error) {
	if v.Indent != "" {
		return json.MarshalIndent(data, "", v.Indent)
	}
	return json.Marshal(data)
}

func (JSON) Decode(data []byte) (any, error) {
	return json.UnmarshalGeneric(data)
}
