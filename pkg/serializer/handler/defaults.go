package handler

import (
	"fmt"
	"reflect"
	"time"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// RegisterDefaults 注册内置处理器：
//   - time.Time     <-> RFC3339Nano 字符串
//   - time.Duration <-> time.Duration.String() 形式的字符串（也接受整数纳秒）
func RegisterDefaults(r *Registry) {
	r.RegisterSerializer(timeType, AnyFormat, func(v reflect.Value, _ string) (any, error) {
		return v.Interface().(time.Time).Format(time.RFC3339Nano), nil
	})
	r.RegisterDeserializer(timeType, AnyFormat, func(data any, out reflect.Value, _ string) error {
		switch d := data.(type) {
		case string:
			t, err := time.Parse(time.RFC3339Nano, d)
			if err != nil {
				return err
			}
			out.Set(reflect.ValueOf(t))
			return nil
		case time.Time:
			// yaml 解码器会直接产出 time.Time。
			out.Set(reflect.ValueOf(d))
			return nil
		default:
			return fmt.Errorf("expected RFC3339 string, got %T", data)
		}
	})

	r.RegisterSerializer(durationType, AnyFormat, func(v reflect.Value, _ string) (any, error) {
		return time.Duration(v.Int()).String(), nil
	})
	r.RegisterDeserializer(durationType, AnyFormat, func(data any, out reflect.Value, _ string) error {
		var d time.Duration
		switch v := data.(type) {
		case string:
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			d = parsed
		default:
			// 各访问者产出的整数宽度不同（msgpack 为 int8 到 uint64）。
			rv := reflect.ValueOf(data)
			switch {
			case rv.CanInt():
				d = time.Duration(rv.Int())
			case rv.CanUint():
				d = time.Duration(rv.Uint())
			case rv.CanFloat():
				d = time.Duration(rv.Float())
			default:
				return fmt.Errorf("expected duration string, got %T", data)
			}
		}
		out.SetInt(int64(d))
		return nil
	})
}
