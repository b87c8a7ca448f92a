// Package serializer 提供可配置的对象图序列化器：
// Builder 累积配置，Build 产出不可变、可并发使用的 Serializer。
package serializer

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/construction"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/event"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/handler"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/metadata"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/naming"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

// HandlerConfigurator 用于注册自定义类型处理器。
type HandlerConfigurator func(r *handler.Registry)

// ListenerConfigurator 用于注册生命周期监听器。
type ListenerConfigurator func(d *event.Dispatcher)

// Builder 为 Serializer 的可变配置累加器，非并发安全。
//
// 未设置的选项在 Build 时使用默认值：
//   - 命名策略：SerializedName(CamelCase("_", true))
//   - 访问者：json、xml、yml、msgpack
//   - 处理器：time.Time、time.Duration（仅当未调用 ConfigureHandlers / AddDefaultHandlers）
//   - 注解读取器：serializer 结构体标签
//   - 对象构造器：construction.Unserialize
type Builder struct {
	debug                    bool
	annotationReader         metadata.Reader
	cacheDir                 string
	compressCache            bool
	includeInterfaceMetadata bool
	metadataDirs             map[string]string

	handlers           *handler.Registry
	handlersConfigured bool
	listeners          *event.Dispatcher
	objectConstructor  construction.ObjectConstructor
	namingStrategy     naming.Strategy

	serializationVisitors        visitor.SerializationTable
	serializationVisitorsAdded   bool
	deserializationVisitors      visitor.DeserializationTable
	deserializationVisitorsAdded bool

	errs []error
}

// NewBuilder 创建一个全部使用默认配置的 Builder。
func NewBuilder() *Builder {
	return &Builder{
		metadataDirs:            make(map[string]string),
		handlers:                handler.NewRegistry(),
		listeners:               event.NewDispatcher(),
		serializationVisitors:   make(visitor.SerializationTable),
		deserializationVisitors: make(visitor.DeserializationTable),
	}
}

// SetDebug 开启调试模式：元数据不读取磁盘缓存，每次重新编译。
func (b *Builder) SetDebug(debug bool) *Builder {
	b.debug = debug
	return b
}

func (b *Builder) Debug() bool {
	return b.debug
}

func (b *Builder) SetAnnotationReader(reader metadata.Reader) *Builder {
	if reader == nil {
		b.errs = append(b.errs, merr.WrapErrConfigInvalid("annotationReader", reader, "reader must not be nil"))
		return b
	}
	b.annotationReader = reader
	return b
}

// SetCacheDir 设置编译后元数据的缓存目录。目录在首次写入缓存时才会创建。
func (b *Builder) SetCacheDir(dir string) *Builder {
	b.cacheDir = dir
	return b
}

func (b *Builder) CacheDir() string {
	return b.cacheDir
}

// SetCacheCompression 控制缓存文件是否使用 zstd 压缩。
func (b *Builder) SetCacheCompression(compress bool) *Builder {
	b.compressCache = compress
	return b
}

func (b *Builder) CacheCompression() bool {
	return b.compressCache
}

// ConfigureHandlers 立即以处理器注册表调用 fn。调用后 Build 不再安装默认处理器，
// 需要默认处理器时可在 fn 中调用 handler.RegisterDefaults。
func (b *Builder) ConfigureHandlers(fn HandlerConfigurator) *Builder {
	fn(b.handlers)
	b.handlersConfigured = true
	return b
}

// AddDefaultHandlers 安装默认处理器。
func (b *Builder) AddDefaultHandlers() *Builder {
	handler.RegisterDefaults(b.handlers)
	b.handlersConfigured = true
	return b
}

// ConfigureListeners 立即以事件分发器调用 fn。
func (b *Builder) ConfigureListeners(fn ListenerConfigurator) *Builder {
	fn(b.listeners)
	return b
}

func (b *Builder) SetObjectConstructor(c construction.ObjectConstructor) *Builder {
	if c == nil {
		b.errs = append(b.errs, merr.WrapErrConfigInvalid("objectConstructor", c, "constructor must not be nil"))
		return b
	}
	b.objectConstructor = c
	return b
}

func (b *Builder) SetPropertyNamingStrategy(s naming.Strategy) *Builder {
	if lo.IsNil(s) {
		b.errs = append(b.errs, merr.WrapErrConfigInvalid("namingStrategy", s, "strategy must not be nil"))
		return b
	}
	b.namingStrategy = s
	return b
}

// PropertyNamingStrategy 返回当前命名策略，未设置时返回默认策略。
func (b *Builder) PropertyNamingStrategy() naming.Strategy {
	if b.namingStrategy == nil {
		return naming.Default()
	}
	return b.namingStrategy
}

// AddDefaultSerializationVisitors 安装默认序列化访问者，覆盖同名格式。
func (b *Builder) AddDefaultSerializationVisitors() *Builder {
	visitor.AddDefaultSerializationVisitors(b.serializationVisitors)
	b.serializationVisitorsAdded = true
	return b
}

// SetSerializationVisitor 为 format 设置序列化访问者。
// 只调用本方法而未调用 AddDefaultSerializationVisitors 时，Build 不再安装默认访问者。
func (b *Builder) SetSerializationVisitor(format string, v visitor.SerializationVisitor) *Builder {
	if v == nil {
		b.errs = append(b.errs, merr.WrapErrConfigInvalid("serializationVisitors."+format, v, "visitor must not be nil"))
		return b
	}
	b.serializationVisitors[format] = v
	b.serializationVisitorsAdded = true
	return b
}

// SerializationVisitors 返回序列化访问者表的副本。
func (b *Builder) SerializationVisitors() visitor.SerializationTable {
	return lo.Assign(b.serializationVisitors)
}

func (b *Builder) AddDefaultDeserializationVisitors() *Builder {
	visitor.AddDefaultDeserializationVisitors(b.deserializationVisitors)
	b.deserializationVisitorsAdded = true
	return b
}

func (b *Builder) SetDeserializationVisitor(format string, v visitor.DeserializationVisitor) *Builder {
	if v == nil {
		b.errs = append(b.errs, merr.WrapErrConfigInvalid("deserializationVisitors."+format, v, "visitor must not be nil"))
		return b
	}
	b.deserializationVisitors[format] = v
	b.deserializationVisitorsAdded = true
	return b
}

// DeserializationVisitors 返回反序列化访问者表的副本。
func (b *Builder) DeserializationVisitors() visitor.DeserializationTable {
	return lo.Assign(b.deserializationVisitors)
}

// IncludeInterfaceMetadata 控制是否读取类型通过 metadata.Annotated 声明的元数据。
func (b *Builder) IncludeInterfaceMetadata(include bool) *Builder {
	b.includeInterfaceMetadata = include
	return b
}

// SetMetadataDirs 替换全部元数据目录，键为包路径前缀。
func (b *Builder) SetMetadataDirs(dirs map[string]string) *Builder {
	b.metadataDirs = lo.Assign(dirs)
	return b
}

// AddMetadataDir 为包路径前缀 prefix 增加一个元数据目录。
func (b *Builder) AddMetadataDir(dir, prefix string) *Builder {
	b.metadataDirs[prefix] = dir
	return b
}

func (b *Builder) MetadataDirs() map[string]string {
	return lo.Assign(b.metadataDirs)
}

// Build 根据当前配置创建一个新的 Serializer。每次调用都会创建新的实例。
// Build 不修改 b：默认访问者与默认处理器只安装到 Serializer 持有的副本中，
// 之后对 b 的修改也不会影响已构建的 Serializer。
func (b *Builder) Build() (*Serializer, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	serializationVisitors := b.SerializationVisitors()
	if !b.serializationVisitorsAdded {
		visitor.AddDefaultSerializationVisitors(serializationVisitors)
	}
	deserializationVisitors := b.DeserializationVisitors()
	if !b.deserializationVisitorsAdded {
		visitor.AddDefaultDeserializationVisitors(deserializationVisitors)
	}
	handlers := b.handlers.Clone()
	if !b.handlersConfigured {
		handler.RegisterDefaults(handlers)
	}

	constructor := b.objectConstructor
	if constructor == nil {
		constructor = construction.Unserialize{}
	}

	factory := metadata.NewFactory(metadata.FactoryOptions{
		Reader:                   b.annotationReader,
		CacheDir:                 b.cacheDir,
		CompressCache:            b.compressCache,
		MetadataDirs:             b.MetadataDirs(),
		IncludeInterfaceMetadata: b.includeInterfaceMetadata,
		Debug:                    b.debug,
	})

	return newSerializer(serializerOptions{
		debug:                   b.debug,
		naming:                  b.PropertyNamingStrategy(),
		metadata:                factory,
		handlers:                handlers,
		dispatcher:              b.listeners.Clone(),
		constructor:             constructor,
		serializationVisitors:   serializationVisitors,
		deserializationVisitors: deserializationVisitors,
	}), nil
}

func (b *Builder) validate() error {
	errs := append([]error(nil), b.errs...)
	for prefix, dir := range b.metadataDirs {
		st, err := os.Stat(dir)
		switch {
		case err != nil:
			errs = append(errs, merr.WrapErrConfigInvalid("metadataDirs."+prefix, dir, err.Error()))
		case !st.IsDir():
			errs = append(errs, merr.WrapErrConfigInvalid("metadataDirs."+prefix, dir, "not a directory"))
		}
	}
	if b.cacheDir != "" {
		if st, err := os.Stat(b.cacheDir); err == nil && !st.IsDir() {
			errs = append(errs, merr.WrapErrConfigInvalid("cacheDir", b.cacheDir, "not a directory"))
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, merr.WrapErrConfigInvalid("cacheDir", b.cacheDir, err.Error()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return merr.Combine(errs...)
}
