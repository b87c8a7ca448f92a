package metadata

import (
	"reflect"
	"strings"
)

// DefaultTagKey 为默认读取的结构体标签名。
const DefaultTagKey = "serializer"

// Reader 负责从结构体字段上读取注解（对应 annotationReader 配置）。
// 第二个返回值表示字段上是否存在注解。
type Reader interface {
	ReadProperty(field reflect.StructField) (Annotations, bool)
}

// TagReader 从结构体标签读取注解，标签格式：
//
//	`serializer:"name,omitempty,inline,since=1.0.0,until=2.0.0,groups=a|b"`
//	`serializer:"-"`
//
// 未知选项会被忽略，因此也可以直接读取 encoding/json 的 `json` 标签。
type TagReader struct {
	Key string
}

var _ Reader = (*TagReader)(nil)

// NewTagReader 创建读取指定标签名的 TagReader，key 为空时使用 DefaultTagKey。
func NewTagReader(key string) *TagReader {
	if key == "" {
		key = DefaultTagKey
	}
	return &TagReader{Key: key}
}

func (r *TagReader) ReadProperty(field reflect.StructField) (Annotations, bool) {
	key := r.Key
	if key == "" {
		key = DefaultTagKey
	}
	tag, ok := field.Tag.Lookup(key)
	if !ok {
		return Annotations{}, false
	}
	return ParseTag(tag), true
}

// ParseTag 解析单个标签值。
func ParseTag(tag string) Annotations {
	var a Annotations
	if tag == "-" {
		a.Exclude = true
		return a
	}
	parts := strings.Split(tag, ",")
	a.SerializedName = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		k, v, hasValue := strings.Cut(opt, "=")
		switch {
		case k == "omitempty":
			a.OmitEmpty = true
		case k == "inline":
			a.Inline = true
		case k == "exclude":
			a.Exclude = true
		case k == "since" && hasValue:
			a.Since = v
		case k == "until" && hasValue:
			a.Until = v
		case k == "groups" && hasValue:
			for _, g := range strings.Split(v, "|") {
				if g = strings.TrimSpace(g); g != "" {
					a.Groups = append(a.Groups, g)
				}
			}
		}
	}
	return a
}
