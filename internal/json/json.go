// Package json 是项目内统一的 JSON 入口，底层基于 bytedance/sonic。
//
// 使用 sonic.ConfigStd：map 键排序、转义 HTML，与 encoding/json 输出保持一致，
// 以保证同一对象多次编码得到稳定的字节序列。
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

var (
	api = sonic.ConfigStd

	// genericAPI 解码到 interface{} 时整数保留为 int64，避免大整数经 float64 丢失精度。
	genericAPI = sonic.Config{
		EscapeHTML:       true,
		SortMapKeys:      true,
		CompactMarshaler: true,
		CopyString:       true,
		ValidateString:   true,
		UseInt64:         true,
	}.Froze()
)

// Marshal 将 v 编码为 JSON。
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent 将 v 编码为带缩进的 JSON。
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal 将 JSON 解码到 v。
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// UnmarshalGeneric 将 JSON 解码为通用数据（map[string]any、[]any、int64、float64 等）。
func UnmarshalGeneric(data []byte) (any, error) {
	var v any
	if err := genericAPI.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewEncoder 返回写入 w 的流式编码器。
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}

// NewDecoder 返回读取 r 的流式解码器。
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}
