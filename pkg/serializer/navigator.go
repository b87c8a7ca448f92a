package serializer

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/mitchellh/mapstructure"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/event"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/metadata"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
	"github.com/lk2023060901/garden-serializer/pkg/util/typeutil"
)

// maxDepth 限制对象图深度，防止经由 interface 形成的环无限递归。
const maxDepth = 256

var (
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// navigator 遍历一次序列化/反序列化的对象图，不可复用。
//
// 序列化输出的通用数据只包含 map[string]any、[]any、string、bool、
// int64、uint64、float64、[]byte（处理器返回的值除外）以及 nil。
type navigator struct {
	s        *Serializer
	format   string
	ctx      *Context
	version  *semver.Version
	groups   typeutil.Set[string]
	visiting typeutil.Set[uintptr]
	path     []string
}

func (n *navigator) where() string {
	if len(n.path) == 0 {
		return "$"
	}
	return "$." + strings.Join(n.path, ".")
}

func (n *navigator) push(name string) error {
	if len(n.path) >= maxDepth {
		return merr.WrapErrCircularRef(n.where())
	}
	n.path = append(n.path, name)
	return nil
}

func (n *navigator) pop() {
	n.path = n.path[:len(n.path)-1]
}

// excluded 判断属性是否被版本或分组排除。
func (n *navigator) excluded(p *metadata.PropertyMetadata) (bool, error) {
	if n.version != nil {
		if p.Since != "" {
			since, err := n.s.parseVersion(p, p.Since)
			if err != nil {
				return false, err
			}
			if n.version.LT(since) {
				return true, nil
			}
		}
		if p.Until != "" {
			until, err := n.s.parseVersion(p, p.Until)
			if err != nil {
				return false, err
			}
			if n.version.GT(until) {
				return true, nil
			}
		}
	}
	if n.groups != nil {
		if len(p.Groups) == 0 {
			return !n.groups.Contain(DefaultGroup), nil
		}
		return !n.groups.ContainAny(p.Groups...), nil
	}
	return false, nil
}

func (n *navigator) serialize(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	t := v.Type()

	if fn, ok := n.s.handlers.Serializer(t, n.format); ok {
		if isNil(v) {
			return nil, nil
		}
		data, err := fn(v, n.format)
		if err != nil {
			return nil, merr.WrapErrHandlerFailed(metadata.ClassName(t), n.format, err)
		}
		return data, nil
	}
	if t.Implements(textMarshalerType) && !isNil(v) {
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, merr.WrapErrHandlerFailed(metadata.ClassName(t), n.format, err)
		}
		return string(text), nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return nil, nil
		}
		addr := v.Pointer()
		if n.visiting.Contain(addr) {
			return nil, merr.WrapErrCircularRef(metadata.ClassName(t))
		}
		n.visiting.Insert(addr)
		defer n.visiting.Remove(addr)
		return n.serialize(v.Elem())
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return n.serialize(v.Elem())
	case reflect.Struct:
		return n.serializeStruct(v)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return n.serializeMap(v)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes()), nil
		}
		return n.serializeList(v)
	case reflect.Array:
		return n.serializeList(v)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	default:
		return nil, merr.WrapErrTypeMismatch(n.where(), "serializable value", v.Interface())
	}
}

func (n *navigator) serializeStruct(v reflect.Value) (any, error) {
	t := v.Type()
	cm, err := n.s.metadata.ClassMetadata(t)
	if err != nil {
		return nil, err
	}

	if n.s.dispatcher.HasListeners(event.PreSerialize, t) {
		if err := n.s.dispatcher.Dispatch(&event.Event{
			Kind: event.PreSerialize, Format: n.format, Type: t, Object: v,
		}); err != nil {
			return nil, err
		}
	}

	out := make(map[string]any, len(cm.Properties))
	for _, p := range cm.Properties {
		skip, err := n.excluded(p)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		fv, ok := fieldByIndex(v, p.Index)
		if !ok {
			continue
		}
		if p.OmitEmpty && fv.IsZero() {
			continue
		}
		if isNil(fv) && !n.ctx.SerializeNull {
			continue
		}

		name := n.s.naming.TranslateName(p)
		if err := n.push(name); err != nil {
			return nil, err
		}
		data, err := n.serialize(fv)
		n.pop()
		if err != nil {
			return nil, err
		}
		if data == nil && !n.ctx.SerializeNull {
			continue
		}
		out[name] = data
	}

	if n.s.dispatcher.HasListeners(event.PostSerialize, t) {
		if err := n.s.dispatcher.Dispatch(&event.Event{
			Kind: event.PostSerialize, Format: n.format, Type: t, Object: v, Data: out,
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *navigator) serializeMap(v reflect.Value) (any, error) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKeyString(iter.Key())
		if err != nil {
			return nil, merr.WrapErrTypeMismatch(n.where(), "string-like map key", iter.Key().Interface())
		}
		if err := n.push(key); err != nil {
			return nil, err
		}
		data, err := n.serialize(iter.Value())
		n.pop()
		if err != nil {
			return nil, err
		}
		if data == nil && !n.ctx.SerializeNull {
			continue
		}
		out[key] = data
	}
	return out, nil
}

func (n *navigator) serializeList(v reflect.Value) (any, error) {
	out := make([]any, v.Len())
	for i := range out {
		if err := n.push(strconv.Itoa(i)); err != nil {
			return nil, err
		}
		data, err := n.serialize(v.Index(i))
		n.pop()
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return out, nil
}

// deserialize 将通用数据 data 写入可设置的 out。
func (n *navigator) deserialize(data any, out reflect.Value) error {
	t := out.Type()

	if fn, ok := n.s.handlers.Deserializer(t, n.format); ok {
		if err := fn(data, out, n.format); err != nil {
			return merr.WrapErrHandlerFailed(metadata.ClassName(t), n.format, err)
		}
		return nil
	}
	if data == nil {
		out.Set(reflect.Zero(t))
		return nil
	}
	if text, ok := data.(string); ok && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if err := out.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return merr.WrapErrHandlerFailed(metadata.ClassName(t), n.format, err)
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		if out.IsNil() {
			out.Set(reflect.New(t.Elem()))
		}
		return n.deserialize(data, out.Elem())
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return merr.WrapErrTypeMismatch(n.where(), t.String(), data)
		}
		out.Set(reflect.ValueOf(data))
		return nil
	case reflect.Struct:
		m, ok := data.(map[string]any)
		if !ok {
			return merr.WrapErrTypeMismatch(n.where(), t.String(), data)
		}
		return n.deserializeStruct(m, out)
	case reflect.Map:
		m, ok := data.(map[string]any)
		if !ok {
			return merr.WrapErrTypeMismatch(n.where(), t.String(), data)
		}
		return n.deserializeMap(m, out)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return n.deserializeBytes(data, out)
		}
		list, ok := data.([]any)
		if !ok {
			return merr.WrapErrTypeMismatch(n.where(), t.String(), data)
		}
		slice := reflect.MakeSlice(t, len(list), len(list))
		if err := n.deserializeList(list, slice); err != nil {
			return err
		}
		out.Set(slice)
		return nil
	case reflect.Array:
		list, ok := data.([]any)
		if !ok || len(list) > t.Len() {
			return merr.WrapErrTypeMismatch(n.where(), t.String(), data)
		}
		arr := reflect.New(t).Elem()
		if err := n.deserializeList(list, arr); err != nil {
			return err
		}
		out.Set(arr)
		return nil
	default:
		return n.decodeLeaf(data, out)
	}
}

func (n *navigator) deserializeStruct(m map[string]any, out reflect.Value) error {
	t := out.Type()
	cm, err := n.s.metadata.ClassMetadata(t)
	if err != nil {
		return err
	}

	if n.s.dispatcher.HasListeners(event.PreDeserialize, t) {
		if err := n.s.dispatcher.Dispatch(&event.Event{
			Kind: event.PreDeserialize, Format: n.format, Type: t, Data: m,
		}); err != nil {
			return err
		}
	}

	obj, err := n.s.constructor.Construct(t, m)
	if err != nil {
		return merr.WrapErrConstructFailed(cm.Name, err)
	}
	if !obj.IsValid() || obj.Type() != t || !obj.CanSet() {
		return merr.WrapErrConstructFailed(cm.Name, fmt.Errorf("constructor must return a settable %s", t))
	}

	for _, p := range cm.Properties {
		skip, err := n.excluded(p)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		name := n.s.naming.TranslateName(p)
		raw, ok := m[name]
		if !ok {
			continue
		}
		if err := n.push(name); err != nil {
			return err
		}
		err = n.deserialize(raw, allocFieldByIndex(obj, p.Index))
		n.pop()
		if err != nil {
			return err
		}
	}
	out.Set(obj)

	if n.s.dispatcher.HasListeners(event.PostDeserialize, t) {
		return n.s.dispatcher.Dispatch(&event.Event{
			Kind: event.PostDeserialize, Format: n.format, Type: t, Object: out, Data: m,
		})
	}
	return nil
}

func (n *navigator) deserializeMap(m map[string]any, out reflect.Value) error {
	t := out.Type()
	result := reflect.MakeMapWithSize(t, len(m))
	for k, raw := range m {
		key := reflect.New(t.Key()).Elem()
		if err := n.decodeMapKey(k, key); err != nil {
			return err
		}
		if err := n.push(k); err != nil {
			return err
		}
		elem := reflect.New(t.Elem()).Elem()
		err := n.deserialize(raw, elem)
		n.pop()
		if err != nil {
			return err
		}
		result.SetMapIndex(key, elem)
	}
	out.Set(result)
	return nil
}

func (n *navigator) deserializeList(list []any, out reflect.Value) error {
	for i, raw := range list {
		if err := n.push(strconv.Itoa(i)); err != nil {
			return err
		}
		err := n.deserialize(raw, out.Index(i))
		n.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// deserializeBytes 接受 base64 字符串（文本格式）或原始字节（msgpack bin）。
func (n *navigator) deserializeBytes(data any, out reflect.Value) error {
	var b []byte
	switch d := data.(type) {
	case string:
		decoded, err := base64.StdEncoding.DecodeString(d)
		if err != nil {
			return merr.WrapErrTypeMismatch(n.where(), "base64 string", data)
		}
		b = decoded
	case []byte:
		b = append([]byte(nil), d...)
	default:
		return merr.WrapErrTypeMismatch(n.where(), out.Type().String(), data)
	}
	out.SetBytes(b)
	return nil
}

func (n *navigator) decodeMapKey(k string, key reflect.Value) error {
	switch {
	case reflect.PointerTo(key.Type()).Implements(textUnmarshalerType):
		if err := key.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(k)); err != nil {
			return merr.WrapErrTypeMismatch(n.where(), key.Type().String(), k)
		}
		return nil
	case key.Kind() == reflect.String:
		key.SetString(k)
		return nil
	default:
		return n.decodeLeaf(k, key)
	}
}

// decodeLeaf 用 mapstructure 的弱类型转换写入标量，
// 使 xml 解码得到的字符串与各格式宽度不同的数字都能落到目标类型。
func (n *navigator) decodeLeaf(data any, out reflect.Value) error {
	tmp := reflect.New(out.Type())
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           tmp.Interface(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		return merr.WrapErrTypeMismatch(n.where(), out.Type().String(), data)
	}
	out.Set(tmp.Elem())
	return nil
}

func mapKeyString(k reflect.Value) (string, error) {
	if k.Type().Implements(textMarshalerType) {
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	case reflect.Bool:
		return strconv.FormatBool(k.Bool()), nil
	default:
		return "", fmt.Errorf("unsupported map key type %s", k.Type())
	}
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// fieldByIndex 沿索引路径取字段，途经 nil 指针时返回 false。
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 {
			if v.Kind() == reflect.Ptr {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
		}
		v = v.Field(x)
	}
	return v, true
}

// allocFieldByIndex 沿索引路径取字段，途经 nil 指针时分配新值。
func allocFieldByIndex(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
