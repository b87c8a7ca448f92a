// Package naming 提供属性命名策略：把 Go 字段名翻译为线上名称。
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/metadata"
)

// 命名策略预设的字面量名称。
const (
	IdenticalPropertyName = "IdenticalProperty"
	CamelCaseName         = "CamelCase"
)

// Presets 为可通过字面量选择的命名策略。
var Presets = []string{IdenticalPropertyName, CamelCaseName}

const (
	DefaultSeparator = "_"
	DefaultLowerCase = true
)

// Strategy 把属性翻译为线上名称。实现必须可并发调用。
type Strategy interface {
	TranslateName(prop *metadata.PropertyMetadata) string
}

// Func 让普通函数满足 Strategy。
type Func func(prop *metadata.PropertyMetadata) string

func (fn Func) TranslateName(prop *metadata.PropertyMetadata) string {
	return fn(prop)
}

// Resolve 用 s 翻译名为 name 的属性。
func Resolve(s Strategy, name string) string {
	return s.TranslateName(metadata.NewPropertyMetadata("", name))
}

// IdenticalProperty 原样使用字段名。
type IdenticalProperty struct{}

var _ Strategy = IdenticalProperty{}

func (IdenticalProperty) TranslateName(prop *metadata.PropertyMetadata) string {
	return prop.Name
}

// CamelCase 在每段连续大写字母前插入分隔符（首字母除外），
// LowerCase 为 true 时整体转小写，否则首字母大写。
//
//	fooBar  -> foo_bar
//	FooBar  -> foo_bar
//	UserID  -> user_id
type CamelCase struct {
	Separator string
	LowerCase bool
}

var _ Strategy = (*CamelCase)(nil)

// NewCamelCase 创建 CamelCase 策略，nil 参数使用默认值（"_"、true）。
func NewCamelCase(separator *string, lowerCase *bool) *CamelCase {
	s := &CamelCase{Separator: DefaultSeparator, LowerCase: DefaultLowerCase}
	if separator != nil {
		s.Separator = *separator
	}
	if lowerCase != nil {
		s.LowerCase = *lowerCase
	}
	return s
}

func (s *CamelCase) TranslateName(prop *metadata.PropertyMetadata) string {
	name := prop.Name
	var b strings.Builder
	b.Grow(len(name) + 4)

	prevUpper := false
	for i, r := range name {
		upper := unicode.IsUpper(r)
		if upper && !prevUpper && i > 0 {
			b.WriteString(s.Separator)
		}
		b.WriteRune(r)
		prevUpper = upper
	}

	out := b.String()
	if s.LowerCase {
		return strings.ToLower(out)
	}
	return upperFirst(out)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// SerializedName 是注解覆盖装饰器：属性显式声明了线上名称时直接使用，
// 否则交给内部策略。
type SerializedName struct {
	Inner Strategy
}

var _ Strategy = (*SerializedName)(nil)

// NewSerializedName 用注解覆盖装饰 inner。
func NewSerializedName(inner Strategy) *SerializedName {
	return &SerializedName{Inner: inner}
}

func (s *SerializedName) TranslateName(prop *metadata.PropertyMetadata) string {
	if prop.SerializedName != "" {
		return prop.SerializedName
	}
	return s.Inner.TranslateName(prop)
}

// Default 返回未配置命名策略时构建器使用的策略。
func Default() Strategy {
	return NewSerializedName(NewCamelCase(nil, nil))
}
