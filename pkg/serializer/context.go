package serializer

// DefaultGroup 为未声明 groups 的属性所属的分组。
const DefaultGroup = "Default"

// Context 为单次序列化/反序列化的选项，nil 等价于零值。
type Context struct {
	// Version 非空时按属性的 since/until 排除不在区间内的属性（semver，允许省略补丁号）。
	Version string
	// Groups 非空时只处理属于这些分组的属性，未声明分组的属性属于 DefaultGroup。
	Groups []string
	// SerializeNull 为 true 时输出 nil 指针、nil map 和 nil slice 为 null，否则省略。
	SerializeNull bool
}

// NewContext 创建一个零值 Context。
func NewContext() *Context {
	return &Context{}
}

func (c *Context) WithVersion(version string) *Context {
	c.Version = version
	return c
}

func (c *Context) WithGroups(groups ...string) *Context {
	c.Groups = append(c.Groups, groups...)
	return c
}

func (c *Context) WithSerializeNull(serializeNull bool) *Context {
	c.SerializeNull = serializeNull
	return c
}
