package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/lk2023060901/garden-serializer/pkg/serializer"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/naming"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

// UnsupportedStrategyError 表示 NamingStrategy 既不是策略实例也不是可识别的字面量。
type UnsupportedStrategyError struct {
	Value   any
	Allowed []string
}

func (e *UnsupportedStrategyError) Error() string {
	allowed := lo.Map(e.Allowed, func(s string, _ int) string { return "'" + s + "'" })
	return fmt.Sprintf("unknown property naming strategy '%v', allowed values are %s",
		e.Value, strings.Join(allowed, " or "))
}

func (e *UnsupportedStrategyError) Unwrap() error {
	return merr.ErrUnsupportedStrategy
}

// ResolveNamingStrategy 解析 cfg.NamingStrategy：
//   - naming.Strategy 实例原样返回，不做包装（nil 指针视为无效值）；
//   - "IdenticalProperty" / "CamelCase" 构造对应策略，并用 SerializedName 包装；
//   - 其它值返回 *UnsupportedStrategyError。
//
// 未配置时返回 (nil, nil)。
func ResolveNamingStrategy(cfg *Config) (naming.Strategy, error) {
	if cfg == nil || cfg.NamingStrategy == nil {
		return nil, nil
	}
	if s, ok := cfg.NamingStrategy.(naming.Strategy); ok {
		if lo.IsNil(s) {
			return nil, &UnsupportedStrategyError{
				Value:   cfg.NamingStrategy,
				Allowed: append([]string(nil), naming.Presets...),
			}
		}
		return s, nil
	}

	var inner naming.Strategy
	name, _ := cfg.NamingStrategy.(string)
	switch name {
	case naming.IdenticalPropertyName:
		inner = naming.IdenticalProperty{}
	case naming.CamelCaseName:
		inner = naming.NewCamelCase(cfg.NamingSeparator, cfg.NamingLowerCase)
	default:
		return nil, &UnsupportedStrategyError{
			Value:   cfg.NamingStrategy,
			Allowed: append([]string(nil), naming.Presets...),
		}
	}
	return naming.NewSerializedName(inner), nil
}

// ResolveSerializationVisitors 先安装默认序列化访问者，再按格式覆盖 cfg 中的条目。
func ResolveSerializationVisitors(b *serializer.Builder, cfg *Config) {
	resolveVisitorTable(cfg.SerializationVisitors, b.AddDefaultSerializationVisitors, b.SetSerializationVisitor)
}

// ResolveDeserializationVisitors 先安装默认反序列化访问者，再按格式覆盖 cfg 中的条目。
func ResolveDeserializationVisitors(b *serializer.Builder, cfg *Config) {
	resolveVisitorTable(cfg.DeserializationVisitors, b.AddDefaultDeserializationVisitors, b.SetDeserializationVisitor)
}

func resolveVisitorTable[V any](table map[string]V, addDefaults func() *serializer.Builder,
	set func(format string, v V) *serializer.Builder,
) {
	addDefaults()
	formats := lo.Keys(table)
	sort.Strings(formats)
	for _, format := range formats {
		set(format, table[format])
	}
}
