// Package metadata 描述可序列化类型的属性元数据，以及元数据的来源：
// 结构体标签（Reader）、类型自带的接口元数据（Annotated）、
// 外部元数据目录（FileDriver）和编译后元数据的磁盘缓存（FileCache）。
package metadata

import (
	"path"
	"reflect"
	"strings"
)

// Annotations 是单个属性上的序列化注解。
type Annotations struct {
	// SerializedName 显式指定的线上名称，优先于命名策略的计算结果。
	SerializedName string `yaml:"serialized_name" json:"serialized_name,omitempty"`
	// Exclude 为 true 时该属性不参与序列化与反序列化。
	Exclude bool `yaml:"exclude" json:"exclude,omitempty"`
	// OmitEmpty 为 true 时零值属性不输出。
	OmitEmpty bool `yaml:"omitempty" json:"omitempty,omitempty"`
	// Inline 为 true 时嵌套结构体的属性平铺到外层。
	Inline bool `yaml:"inline" json:"inline,omitempty"`
	// Since / Until 为属性生效的版本区间（semver），空表示不限。
	Since string `yaml:"since" json:"since,omitempty"`
	Until string `yaml:"until" json:"until,omitempty"`
	// Groups 为属性所属的分组。
	Groups []string `yaml:"groups" json:"groups,omitempty"`
}

// PropertyMetadata 是某个结构体字段的元数据。
type PropertyMetadata struct {
	Annotations

	// Class 为所属类型名，形如 "pkg.Type"。
	Class string
	// Name 为 Go 字段名。
	Name string
	// Index 为相对所属结构体的字段索引路径（平铺后的属性可能多于一级）。
	Index []int
	// Type 为字段类型。
	Type reflect.Type
}

// NewPropertyMetadata 构造一个只携带名称信息的属性元数据，
// 主要供命名策略单独使用。
func NewPropertyMetadata(class, name string) *PropertyMetadata {
	return &PropertyMetadata{Class: class, Name: name}
}

// ClassMetadata 是一个结构体类型的完整元数据。
type ClassMetadata struct {
	Name        string
	Type        reflect.Type
	Properties  []*PropertyMetadata
	Fingerprint uint64
}

// Property 按 Go 字段名查找属性。
func (c *ClassMetadata) Property(name string) (*PropertyMetadata, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ClassName 返回类型的领域名称 "pkg.Type"；泛型实例化参数会被去掉，
// 匿名类型返回 t.String()。
func ClassName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := simpleName(t)
	if name == "" {
		return t.String()
	}
	if p := t.PkgPath(); p != "" {
		return path.Base(p) + "." + name
	}
	return name
}

// simpleName 返回去掉泛型参数的类型名。
func simpleName(t reflect.Type) string {
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// Annotated 由希望自带序列化元数据的类型实现，返回值以 Go 字段名为键。
// 仅在开启 includeInterfaceMetadata 时才会被读取。
type Annotated interface {
	SerializerAnnotations() map[string]Annotations
}

var annotatedType = reflect.TypeOf((*Annotated)(nil)).Elem()

// interfaceAnnotations 读取 t 通过 Annotated 接口声明的元数据。
func interfaceAnnotations(t reflect.Type) map[string]Annotations {
	if !t.Implements(annotatedType) && !reflect.PointerTo(t).Implements(annotatedType) {
		return nil
	}
	a, ok := reflect.New(t).Interface().(Annotated)
	if !ok {
		return nil
	}
	return a.SerializerAnnotations()
}
