package visitor

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Protobuf 将通用数据编码为 google.protobuf.Value 的二进制形式。
//
// 注意：structpb 只有 double 一种数值类型，解码后所有数字均为 float64。
type Protobuf struct{}

var (
	_ SerializationVisitor   = Protobuf{}
	_ DeserializationVisitor = Protobuf{}
)

var marshalOptions = proto.MarshalOptions{Deterministic: true}

func (Protobuf) Encode(data any) ([]byte, error) {
	value, err := structpb.NewValue(normalize(data))
	if err != nil {
		return nil, err
	}
	return marshalOptions.Marshal(value)
}

func (Protobuf) Decode(data []byte) (any, error) {
	var value structpb.Value
	if err := proto.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value.AsInterface(), nil
}
