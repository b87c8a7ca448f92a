// Package construction 决定反序列化时如何实例化对象（对应 objectConstructor 配置）。
package construction

import (
	"reflect"
)

// ObjectConstructor 为结构体类型 t 创建一个待填充的实例。
// data 为该对象对应的通用数据，可用于按内容选择或预填充实例。
// 返回值必须是可设置的 t 类型值（通常为 reflect.New(t).Elem()）。
type ObjectConstructor interface {
	Construct(t reflect.Type, data map[string]any) (reflect.Value, error)
}

// Func 让普通函数满足 ObjectConstructor。
type Func func(t reflect.Type, data map[string]any) (reflect.Value, error)

func (fn Func) Construct(t reflect.Type, data map[string]any) (reflect.Value, error) {
	return fn(t, data)
}

// Unserialize 为默认构造器：分配 t 的零值，不调用任何构造逻辑。
type Unserialize struct{}

var _ ObjectConstructor = Unserialize{}

func (Unserialize) Construct(t reflect.Type, _ map[string]any) (reflect.Value, error) {
	return reflect.New(t).Elem(), nil
}

// Initializer 由需要在填充前设置默认值的类型实现（指针接收者）。
type Initializer interface {
	InitDefaults()
}

// WithInitializer 包装 inner：构造后若实例实现了 Initializer，则先调用 InitDefaults。
func WithInitializer(inner ObjectConstructor) ObjectConstructor {
	return Func(func(t reflect.Type, data map[string]any) (reflect.Value, error) {
		v, err := inner.Construct(t, data)
		if err != nil {
			return v, err
		}
		if v.CanAddr() {
			if init, ok := v.Addr().Interface().(Initializer); ok {
				init.InitDefaults()
			}
		}
		return v, nil
	})
}
