package serializer

import (
	"reflect"
	"sync"
	"time"

	"github.com/blang/semver/v4"
	"go.uber.org/zap"

	"github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/metrics"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/construction"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/event"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/handler"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/metadata"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/naming"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
	"github.com/lk2023060901/garden-serializer/pkg/util/typeutil"
)

const (
	directionSerialization   = "serialization"
	directionDeserialization = "deserialization"
)

type serializerOptions struct {
	debug                   bool
	naming                  naming.Strategy
	metadata                *metadata.Factory
	handlers                *handler.Registry
	dispatcher              *event.Dispatcher
	constructor             construction.ObjectConstructor
	serializationVisitors   visitor.SerializationTable
	deserializationVisitors visitor.DeserializationTable
}

// Serializer 在 Go 值与各格式字节之间转换。由 Builder.Build 创建，创建后不可变，可并发使用。
type Serializer struct {
	log.Binder

	serializerOptions

	// versions 缓存属性标签中解析过的 since/until 版本。
	versions sync.Map
}

func newSerializer(opts serializerOptions) *Serializer {
	s := &Serializer{serializerOptions: opts}
	s.SetLogger(log.With(log.FieldModule("serializer"), log.FieldComponent("serializer")))
	return s
}

// Serialize 将 v 编码为 format 格式。
func (s *Serializer) Serialize(v any, format string) ([]byte, error) {
	return s.SerializeContext(v, format, nil)
}

// SerializeContext 按 ctx 的版本、分组与空值选项将 v 编码为 format 格式。
func (s *Serializer) SerializeContext(v any, format string, ctx *Context) (out []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(metrics.SerializeOp, format, start, len(out), err)
		s.trace(metrics.SerializeOp, format, v, start, err)
	}()

	vis, ok := s.serializationVisitors[format]
	if !ok {
		return nil, merr.WrapErrUnsupportedFormat(format, directionSerialization)
	}
	n, err := s.navigator(format, ctx)
	if err != nil {
		return nil, err
	}
	data, err := n.serialize(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	out, err = vis.Encode(data)
	if err != nil {
		return nil, merr.WrapErrEncodeFailed(format, err)
	}
	return out, nil
}

// Deserialize 将 format 格式的 data 解码到 out，out 必须为非 nil 指针。
func (s *Serializer) Deserialize(data []byte, format string, out any) error {
	return s.DeserializeContext(data, format, out, nil)
}

// DeserializeContext 按 ctx 的版本与分组选项将 data 解码到 out。
func (s *Serializer) DeserializeContext(data []byte, format string, out any, ctx *Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(metrics.DeserializeOp, format, start, len(data), err)
		s.trace(metrics.DeserializeOp, format, out, start, err)
	}()

	vis, ok := s.deserializationVisitors[format]
	if !ok {
		return merr.WrapErrUnsupportedFormat(format, directionDeserialization)
	}
	target, err := targetOf(out)
	if err != nil {
		return err
	}
	n, err := s.navigator(format, ctx)
	if err != nil {
		return err
	}
	tree, err := vis.Decode(data)
	if err != nil {
		return merr.WrapErrDecodeFailed(format, err)
	}
	return n.deserialize(tree, target)
}

// ToMap 将结构体 v 转换为通用数据，处理器按 json 格式选择。
func (s *Serializer) ToMap(v any) (map[string]any, error) {
	n, err := s.navigator(visitor.FormatJSON, nil)
	if err != nil {
		return nil, err
	}
	data, err := n.serialize(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, merr.WrapErrInvalidTarget(v, "expect a value that serializes to an object")
	}
	return m, nil
}

// FromMap 将通用数据写入 out，out 必须为非 nil 指针。
func (s *Serializer) FromMap(data map[string]any, out any) error {
	target, err := targetOf(out)
	if err != nil {
		return err
	}
	n, err := s.navigator(visitor.FormatJSON, nil)
	if err != nil {
		return err
	}
	return n.deserialize(data, target)
}

// SerializationFormats 返回可序列化的格式（升序）。
func (s *Serializer) SerializationFormats() []string {
	return s.serializationVisitors.Formats()
}

// DeserializationFormats 返回可反序列化的格式（升序）。
func (s *Serializer) DeserializationFormats() []string {
	return s.deserializationVisitors.Formats()
}

// NamingStrategy 返回生效的命名策略。
func (s *Serializer) NamingStrategy() naming.Strategy {
	return s.naming
}

func targetOf(out any) (reflect.Value, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, merr.WrapErrInvalidTarget(out, "expect a non-nil pointer")
	}
	return rv.Elem(), nil
}

func (s *Serializer) navigator(format string, ctx *Context) (*navigator, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	n := &navigator{
		s:        s,
		format:   format,
		ctx:      ctx,
		visiting: typeutil.NewSet[uintptr](),
	}
	if ctx.Version != "" {
		v, err := semver.ParseTolerant(ctx.Version)
		if err != nil {
			return nil, merr.WrapErrConfigInvalid("version", ctx.Version, err.Error())
		}
		n.version = &v
	}
	if len(ctx.Groups) > 0 {
		n.groups = typeutil.NewSet(ctx.Groups...)
	}
	return n, nil
}

// parseVersion 解析并缓存属性标签中的版本号。
func (s *Serializer) parseVersion(p *metadata.PropertyMetadata, raw string) (semver.Version, error) {
	if v, ok := s.versions.Load(raw); ok {
		return v.(semver.Version), nil
	}
	v, err := semver.ParseTolerant(raw)
	if err != nil {
		return semver.Version{}, merr.WrapErrMetadataLoad(p.Class, err)
	}
	s.versions.Store(raw, v)
	return v, nil
}

func (s *Serializer) trace(op, format string, v any, start time.Time, err error) {
	if !s.debug {
		return
	}
	logger := s.Logger()
	if err != nil {
		logger.Debug(op+" failed", log.FieldFormat(format),
			log.FieldType(metadata.ClassName(reflect.TypeOf(v))), zap.Error(err))
		return
	}
	logger.Debug(op, log.FieldFormat(format),
		log.FieldType(metadata.ClassName(reflect.TypeOf(v))), zap.Duration("cost", time.Since(start)))
}
