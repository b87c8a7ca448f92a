package provider

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/metrics"
	"github.com/lk2023060901/garden-serializer/pkg/serializer"
)

// Option 为 Factory 的可选参数。
type Option func(*Factory)

// WithLogger 指定 Factory 使用的 Logger。
func WithLogger(logger *log.MLogger) Option {
	return func(f *Factory) {
		f.SetLogger(logger)
	}
}

// Factory 持有一份配置，并最多构建一次 Builder 和一次 Serializer。
//
// 状态只会单向推进：未构建 -> Builder 就绪 -> Serializer 就绪。
// 构建失败时不缓存任何结果，再次调用会重新尝试。
// 首次构建由互斥锁保护，构建完成后的读取无锁。
type Factory struct {
	log.Binder

	cfg *Config

	mu         sync.Mutex
	builder    atomic.Pointer[serializer.Builder]
	serializer atomic.Pointer[serializer.Serializer]
}

// NewFactory 创建 Factory；cfg 为 nil 时等价于空配置。不会触发任何构建。
func NewFactory(cfg *Config, opts ...Option) *Factory {
	if cfg == nil {
		cfg = &Config{}
	}
	f := &Factory{cfg: cfg}
	f.SetLogger(log.With(log.FieldModule("serializer"), log.FieldComponent("provider")))
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Builder 返回已按配置设置好的 Builder，重复调用返回同一实例。
func (f *Factory) Builder() (*serializer.Builder, error) {
	if b := f.builder.Load(); b != nil {
		return b, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builderLocked()
}

// Serializer 返回由 Builder 构建的 Serializer，重复调用返回同一实例。
func (f *Factory) Serializer() (*serializer.Serializer, error) {
	if s := f.serializer.Load(); s != nil {
		return s, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.serializer.Load(); s != nil {
		return s, nil
	}

	b, err := f.builderLocked()
	if err != nil {
		return nil, err
	}
	s, err := b.Build()
	metrics.Constructions.WithLabelValues(metrics.SerializerComponent, metrics.Status(err)).Inc()
	if err != nil {
		f.Logger().Warn("failed to build serializer", zap.Error(err))
		return nil, err
	}
	f.serializer.Store(s)
	f.Logger().Info("serializer constructed",
		zap.Strings("serialization_formats", s.SerializationFormats()),
		zap.Strings("deserialization_formats", s.DeserializationFormats()))
	return s, nil
}

// MustSerializer 同 Serializer，出错时 panic。供进程启动阶段使用。
func (f *Factory) MustSerializer() *serializer.Serializer {
	s, err := f.Serializer()
	if err != nil {
		panic(err)
	}
	return s
}

func (f *Factory) builderLocked() (*serializer.Builder, error) {
	if b := f.builder.Load(); b != nil {
		return b, nil
	}
	b, err := f.newBuilder()
	metrics.Constructions.WithLabelValues(metrics.BuilderComponent, metrics.Status(err)).Inc()
	if err != nil {
		f.Logger().Warn("failed to configure serializer builder", zap.Error(err))
		return nil, err
	}
	f.builder.Store(b)
	f.Logger().Info("serializer builder constructed", zap.Bool("debug", f.cfg.Debug))
	return b, nil
}

// newBuilder 创建 Builder 并依次应用已配置的项，未配置的项保持 Builder 默认值。
// 命名策略与访问者表必须在 SetDebug 之后解析。
func (f *Factory) newBuilder() (*serializer.Builder, error) {
	cfg := f.cfg
	logger := f.Logger()
	b := serializer.NewBuilder().SetDebug(cfg.Debug)

	if cfg.AnnotationReader != nil {
		logger.Debug("apply override", zap.String("key", "annotationReader"))
		b.SetAnnotationReader(cfg.AnnotationReader)
	}
	if cfg.CacheDir != nil {
		logger.Debug("apply override", zap.String("key", "cacheDir"), zap.String("dir", *cfg.CacheDir))
		b.SetCacheDir(*cfg.CacheDir)
	}
	if cfg.CacheCompression != nil {
		logger.Debug("apply override", zap.String("key", "cacheCompression"), zap.Bool("compress", *cfg.CacheCompression))
		b.SetCacheCompression(*cfg.CacheCompression)
	}
	if cfg.ConfigureHandlers != nil {
		logger.Debug("apply override", zap.String("key", "configureHandlers"))
		b.ConfigureHandlers(cfg.ConfigureHandlers)
	}
	if cfg.ConfigureListeners != nil {
		logger.Debug("apply override", zap.String("key", "configureListeners"))
		b.ConfigureListeners(cfg.ConfigureListeners)
	}
	if cfg.ObjectConstructor != nil {
		logger.Debug("apply override", zap.String("key", "objectConstructor"))
		b.SetObjectConstructor(cfg.ObjectConstructor)
	}
	if cfg.NamingStrategy != nil {
		s, err := ResolveNamingStrategy(cfg)
		if err != nil {
			return nil, err
		}
		logger.Debug("apply override", zap.String("key", "namingStrategy"))
		b.SetPropertyNamingStrategy(s)
	}
	if cfg.SerializationVisitors != nil {
		logger.Debug("apply override", zap.String("key", "serializationVisitors"),
			zap.Strings("formats", cfg.SerializationVisitors.Formats()))
		ResolveSerializationVisitors(b, cfg)
	}
	if cfg.DeserializationVisitors != nil {
		logger.Debug("apply override", zap.String("key", "deserializationVisitors"),
			zap.Strings("formats", cfg.DeserializationVisitors.Formats()))
		ResolveDeserializationVisitors(b, cfg)
	}
	if cfg.IncludeInterfaceMetadata != nil {
		logger.Debug("apply override", zap.String("key", "includeInterfaceMetadata"))
		b.IncludeInterfaceMetadata(*cfg.IncludeInterfaceMetadata)
	}
	if cfg.MetadataDirs != nil {
		logger.Debug("apply override", zap.String("key", "metadataDirs"), zap.Int("count", len(cfg.MetadataDirs)))
		b.SetMetadataDirs(cfg.MetadataDirs)
	}
	return b, nil
}
