// Package provider 把可选配置解析为 serializer.Builder 的设置，
// 并以记忆化的方式提供唯一的 Builder 与 Serializer。
package provider

import (
	"github.com/lk2023060901/garden-serializer/pkg/serializer"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/construction"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/metadata"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
)

// Config 为序列化器的全部可选配置。nil 指针、nil map、nil 函数表示未配置，
// 未配置的项保持 Builder 自身的默认行为。Factory 不会修改 Config。
type Config struct {
	// Debug 为宿主应用的调试开关，总是写入 Builder。
	Debug bool

	// NamingStrategy 为 naming.Strategy 实例，或字面量 "IdenticalProperty" / "CamelCase"。
	NamingStrategy any
	// NamingSeparator / NamingLowerCase 仅用于 "CamelCase" 字面量。
	NamingSeparator *string
	NamingLowerCase *bool

	AnnotationReader   metadata.Reader
	CacheDir           *string
	ConfigureHandlers  serializer.HandlerConfigurator
	ConfigureListeners serializer.ListenerConfigurator
	ObjectConstructor  construction.ObjectConstructor

	// CacheCompression 仅在 CacheDir 生效时有意义。
	CacheCompression *bool

	// SerializationVisitors / DeserializationVisitors 按格式覆盖默认访问者，不会整体替换。
	SerializationVisitors   visitor.SerializationTable
	DeserializationVisitors visitor.DeserializationTable

	IncludeInterfaceMetadata *bool
	// MetadataDirs 的键为 Go 包路径前缀，值为元数据目录。
	MetadataDirs map[string]string
}
