// Package visitor 定义格式访问者：序列化访问者把对象图遍历得到的通用数据
// （map[string]any、[]any、标量）编码为某种格式的字节，反序列化访问者则相反。
//
// 具体的编解码委托给成熟的第三方库，本包只负责统一数据形态。
package visitor

import (
	"sort"

	"github.com/samber/lo"
)

// 内置格式标识。
const (
	FormatJSON     = "json"
	FormatXML      = "xml"
	FormatYAML     = "yml"
	FormatMsgpack  = "msgpack"
	FormatProtobuf = "protobuf"
)

// SerializationVisitor 负责把通用数据写为一种格式。
type SerializationVisitor interface {
	Encode(data any) ([]byte, error)
}

// DeserializationVisitor 负责把一种格式读为通用数据。
type DeserializationVisitor interface {
	Decode(data []byte) (any, error)
}

// EncodeFunc 将普通函数适配为 SerializationVisitor。
type EncodeFunc func(data any) ([]byte, error)

func (f EncodeFunc) Encode(data any) ([]byte, error) { return f(data) }

// DecodeFunc 将普通函数适配为 DeserializationVisitor。
type DecodeFunc func(data []byte) (any, error)

func (f DecodeFunc) Decode(data []byte) (any, error) { return f(data) }

// SerializationTable 为格式到序列化访问者的映射。
type SerializationTable map[string]SerializationVisitor

// DeserializationTable 为格式到反序列化访问者的映射。
type DeserializationTable map[string]DeserializationVisitor

// Formats 返回已注册的格式（升序）。
func (t SerializationTable) Formats() []string {
	return sortedKeys(t)
}

// Formats 返回已注册的格式（升序）。
func (t DeserializationTable) Formats() []string {
	return sortedKeys(t)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// DefaultFormats 为默认注册的格式。
var DefaultFormats = []string{FormatJSON, FormatXML, FormatYAML, FormatMsgpack}

// AddDefaultSerializationVisitors 向 t 写入默认序列化访问者，覆盖同名格式。
func AddDefaultSerializationVisitors(t SerializationTable) {
	t[FormatJSON] = JSON{}
	t[FormatXML] = XML{}
	t[FormatYAML] = YAML{}
	t[FormatMsgpack] = Msgpack{}
}

// AddDefaultDeserializationVisitors 向 t 写入默认反序列化访问者，覆盖同名格式。
func AddDefaultDeserializationVisitors(t DeserializationTable) {
	t[FormatJSON] = JSON{}
	t[FormatXML] = XML{}
	t[FormatYAML] = YAML{}
	t[FormatMsgpack] = Msgpack{}
}
