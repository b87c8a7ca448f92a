package visitor

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack 使用 vmihailenco/msgpack/v5 编解码。map 键排序编码，保证输出稳定。
type Msgpack struct{}

var (
	_ SerializationVisitor   = Msgpack{}
	_ DeserializationVisitor = Msgpack{}
)

func (Msgpack) Encode(data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Msgpack) Decode(data []byte) (any, error) {
	v, err := msgpack.NewDecoder(bytes.NewReader(data)).DecodeInterface()
	if err != nil {
		return nil, err
	}
	// 解码出的整数宽度随编码而变（int8 到 uint64）。
	return normalize(v), nil
}
