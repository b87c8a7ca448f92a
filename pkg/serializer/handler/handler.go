// Package handler 维护自定义类型处理器（对应 configureHandlers 配置）。
//
// 处理器接管某个 Go 类型在某种格式下的序列化/反序列化，
// 优先于默认的对象图遍历。
package handler

import (
	"reflect"
	"sync"

	"github.com/samber/lo"
)

// AnyFormat 表示对所有格式生效的处理器。
const AnyFormat = "*"

// SerializeFunc 把 v 转换为可被访问者编码的通用数据（map/slice/标量）。
type SerializeFunc func(v reflect.Value, format string) (any, error)

// DeserializeFunc 把访问者解码得到的通用数据写入 out（可设置的 reflect.Value）。
type DeserializeFunc func(data any, out reflect.Value, format string) error

type key struct {
	typ    reflect.Type
	format string
}

// Registry 为处理器注册表。Build 之后只读，可并发查询。
type Registry struct {
	mu            sync.RWMutex
	serializers   map[key]SerializeFunc
	deserializers map[key]DeserializeFunc
}

// NewRegistry 创建一个空注册表。
func NewRegistry() *Registry {
	return &Registry{
		serializers:   make(map[key]SerializeFunc),
		deserializers: make(map[key]DeserializeFunc),
	}
}

// RegisterSerializer 为 typ 在 format（或 AnyFormat）下注册序列化处理器，
// 同一键后注册的覆盖先注册的。
func (r *Registry) RegisterSerializer(typ reflect.Type, format string, fn SerializeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serializers[key{typ, format}] = fn
}

// RegisterDeserializer 为 typ 在 format（或 AnyFormat）下注册反序列化处理器。
func (r *Registry) RegisterDeserializer(typ reflect.Type, format string, fn DeserializeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deserializers[key{typ, format}] = fn
}

// Serializer 查找 typ 的序列化处理器，格式专属的优先于 AnyFormat。
func (r *Registry) Serializer(typ reflect.Type, format string) (SerializeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.serializers[key{typ, format}]; ok {
		return fn, true
	}
	fn, ok := r.serializers[key{typ, AnyFormat}]
	return fn, ok
}

// Deserializer 查找 typ 的反序列化处理器，格式专属的优先于 AnyFormat。
func (r *Registry) Deserializer(typ reflect.Type, format string) (DeserializeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.deserializers[key{typ, format}]; ok {
		return fn, true
	}
	fn, ok := r.deserializers[key{typ, AnyFormat}]
	return fn, ok
}

// Len 返回已注册的处理器总数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.serializers) + len(r.deserializers)
}

// Clone 返回注册表的独立副本。
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{
		serializers:   lo.Assign(r.serializers),
		deserializers: lo.Assign(r.deserializers),
	}
}
