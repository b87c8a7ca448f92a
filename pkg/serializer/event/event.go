// Package event 提供序列化生命周期事件的分发（对应 configureListeners 配置）。
package event

import (
	"reflect"
	"sync"

	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

// Kind 为事件类型。
type Kind string

const (
	// PreSerialize 在对象被转换为通用数据之前触发，监听器可以修改对象。
	PreSerialize Kind = "serializer.pre_serialize"
	// PostSerialize 在对象被转换为通用数据之后触发，监听器可以修改 Data。
	PostSerialize Kind = "serializer.post_serialize"
	// PreDeserialize 在通用数据写入对象之前触发，监听器可以修改 Data。
	PreDeserialize Kind = "serializer.pre_deserialize"
	// PostDeserialize 在对象填充完成之后触发。
	PostDeserialize Kind = "serializer.post_deserialize"
)

// Event 为分发给监听器的事件。
type Event struct {
	Kind   Kind
	Format string
	// Type 为当前对象的类型（已解引用指针）。
	Type reflect.Type
	// Object 为当前对象，反序列化前为零值。
	Object reflect.Value
	// Data 为对象对应的通用数据（map[string]any）。
	Data map[string]any
}

// Listener 为事件监听器，返回错误会中止本次序列化/反序列化。
type Listener func(e *Event) error

type subscription struct {
	typ      reflect.Type
	listener Listener
}

// Dispatcher 为事件分发器。Build 之后只读，可并发分发。
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[Kind][]subscription
}

// NewDispatcher 创建一个空分发器。
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Kind][]subscription)}
}

// Clone 返回分发器的副本，之后的订阅互不影响。
func (d *Dispatcher) Clone() *Dispatcher {
	d.mu.RLock()
	defer d.mu.RUnlock()
	subs := make(map[Kind][]subscription, len(d.subs))
	for kind, s := range d.subs {
		subs[kind] = append([]subscription(nil), s...)
	}
	return &Dispatcher{subs: subs}
}

// Subscribe 为所有类型订阅 kind 事件。
func (d *Dispatcher) Subscribe(kind Kind, l Listener) {
	d.SubscribeType(kind, nil, l)
}

// SubscribeType 仅为 typ 订阅 kind 事件，typ 为 nil 表示所有类型。
func (d *Dispatcher) SubscribeType(kind Kind, typ reflect.Type, l Listener) {
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[kind] = append(d.subs[kind], subscription{typ: typ, listener: l})
}

// HasListeners 判断 kind 事件对 typ 是否有监听器。
func (d *Dispatcher) HasListeners(kind Kind, typ reflect.Type) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.subs[kind] {
		if s.typ == nil || s.typ == typ {
			return true
		}
	}
	return false
}

// Dispatch 按订阅顺序调用监听器，遇到第一个错误即返回。
func (d *Dispatcher) Dispatch(e *Event) error {
	d.mu.RLock()
	subs := d.subs[e.Kind]
	d.mu.RUnlock()

	for _, s := range subs {
		if s.typ != nil && s.typ != e.Type {
			continue
		}
		if err := s.listener(e); err != nil {
			return merr.WrapErrListenerAborted(string(e.Kind), err)
		}
	}
	return nil
}
