package metadata

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/garden-serializer/internal/compressor"
	"github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/metrics"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
	"github.com/lk2023060901/garden-serializer/pkg/util/retry"
)

const (
	cacheWriteAttempts = 3
	cacheWriteSleep    = 10 * time.Millisecond
)

// FactoryOptions 为 Factory 的构造参数，零值即为默认行为。
type FactoryOptions struct {
	// Reader 为注解读取器，nil 时使用 NewTagReader(DefaultTagKey)。
	Reader Reader
	// CacheDir 非空时启用磁盘缓存。
	CacheDir string
	// CompressCache 为 true 时缓存文件使用 zstd 压缩（扩展名 .json.zst）。
	CompressCache bool
	// MetadataDirs 为包路径前缀到元数据目录的映射。
	MetadataDirs map[string]string
	// IncludeInterfaceMetadata 为 true 时读取 Annotated 接口元数据。
	IncludeInterfaceMetadata bool
	// Debug 为 true 时不信任磁盘缓存，每次重新编译并刷新缓存。
	Debug bool
	// Logger 为 nil 时使用全局 Logger。
	Logger *log.MLogger
}

// Factory 负责按类型编译并缓存 ClassMetadata，可并发使用。
type Factory struct {
	reader           Reader
	driver           *FileDriver
	cache            *FileCache
	includeInterface bool
	debug            bool
	logger           *log.MLogger

	loaded sync.Map // reflect.Type -> *ClassMetadata
	group  singleflight.Group
}

// NewFactory 创建元数据工厂；不会触发任何 I/O。
func NewFactory(opts FactoryOptions) *Factory {
	f := &Factory{
		reader:           opts.Reader,
		includeInterface: opts.IncludeInterfaceMetadata,
		debug:            opts.Debug,
		logger:           opts.Logger,
	}
	if f.reader == nil {
		f.reader = NewTagReader(DefaultTagKey)
	}
	if len(opts.MetadataDirs) > 0 {
		f.driver = NewFileDriver(opts.MetadataDirs)
	}
	if f.logger == nil {
		f.logger = log.With(log.FieldModule("serializer"), log.FieldComponent("metadata"))
	}
	if opts.CacheDir != "" {
		var c compressor.Compressor
		if opts.CompressCache {
			zc, err := compressor.NewZstdCompressor()
			if err != nil {
				f.logger.Warn("zstd unavailable, metadata cache is stored uncompressed", zap.Error(err))
			} else {
				c = zc
			}
		}
		f.cache = NewFileCache(opts.CacheDir, c)
	}
	return f
}

// ClassMetadata 返回结构体类型 t 的元数据，指针类型会被解引用。
func (f *Factory) ClassMetadata(t reflect.Type) (*ClassMetadata, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, merr.WrapErrMetadataLoad(fmt.Sprint(t), fmt.Errorf("not a struct type"))
	}
	if cm, ok := f.loaded.Load(t); ok {
		return cm.(*ClassMetadata), nil
	}

	key := t.PkgPath() + "|" + t.String()
	v, err, _ := f.group.Do(key, func() (any, error) {
		if cm, ok := f.loaded.Load(t); ok {
			return cm, nil
		}
		cm, err := f.load(t)
		if err != nil {
			return nil, err
		}
		f.loaded.Store(t, cm)
		return cm, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClassMetadata), nil
}

func (f *Factory) load(t reflect.Type) (*ClassMetadata, error) {
	name := ClassName(t)
	fingerprint := f.fingerprint(t)

	if f.cache != nil && !f.debug {
		cm, ok, err := f.cache.Load(t, fingerprint)
		if err != nil {
			metrics.MetadataCacheFailures.Inc()
			f.logger.Warn("metadata cache read failed", log.FieldType(name), zap.Error(err))
		} else if ok {
			metrics.MetadataLoads.WithLabelValues(metrics.CacheSource).Inc()
			f.logger.Debug("metadata cache hit", log.FieldType(name))
			return cm, nil
		}
	}

	cm, err := f.compile(t, name)
	if err != nil {
		return nil, err
	}
	cm.Fingerprint = fingerprint
	metrics.MetadataLoads.WithLabelValues(metrics.CompileSource).Inc()

	if f.cache != nil {
		err := retry.Do(context.Background(), func() error { return f.cache.Store(cm) },
			retry.Attempts(cacheWriteAttempts),
			retry.Sleep(cacheWriteSleep),
			retry.RetryErr(merr.IsRetryableErr),
			retry.WithLogger(f.logger))
		if err != nil {
			// 缓存写入失败不影响序列化本身。
			metrics.MetadataCacheFailures.Inc()
			f.logger.Warn("metadata cache write failed", log.FieldType(name), zap.Error(err))
		}
	}
	return cm, nil
}

func (f *Factory) compile(t reflect.Type, name string) (*ClassMetadata, error) {
	var overrides map[string]Annotations
	if f.includeInterface {
		overrides = interfaceAnnotations(t)
	}
	var fileAnnotations map[string]Annotations
	if f.driver != nil {
		fa, ok, err := f.driver.Load(t)
		if err != nil {
			return nil, err
		}
		if ok {
			fileAnnotations = fa
		}
	}

	cm := &ClassMetadata{Name: name, Type: t}
	if err := f.collect(cm, t, nil, overrides, fileAnnotations, map[reflect.Type]bool{t: true}); err != nil {
		return nil, err
	}
	f.logger.Debug("metadata compiled", log.FieldType(name), zap.Int("properties", len(cm.Properties)))
	return cm, nil
}

// collect 收集 t 的可导出字段；内联的结构体字段会被递归平铺。
func (f *Factory) collect(cm *ClassMetadata, t reflect.Type, prefix []int,
	overrides, fileAnnotations map[string]Annotations, visiting map[reflect.Type]bool,
) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}

		a, tagged := f.reader.ReadProperty(sf)
		if o, ok := overrides[sf.Name]; ok && len(prefix) == 0 {
			a, tagged = o, true
		}
		if fa, ok := fileAnnotations[sf.Name]; ok && len(prefix) == 0 {
			a, tagged = fa, true
		}
		if a.Exclude {
			continue
		}

		index := append(append(make([]int, 0, len(prefix)+1), prefix...), i)

		// 无显式名称的匿名结构体字段与显式 inline 字段平铺到外层。
		inline := a.Inline || (sf.Anonymous && (!tagged || a.SerializedName == ""))
		if inline && sf.Type.Kind() == reflect.Struct {
			if visiting[sf.Type] {
				return merr.WrapErrCircularRef(ClassName(sf.Type))
			}
			visiting[sf.Type] = true
			if err := f.collect(cm, sf.Type, index, nil, nil, visiting); err != nil {
				return err
			}
			delete(visiting, sf.Type)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		cm.Properties = append(cm.Properties, &PropertyMetadata{
			Annotations: a,
			Class:       cm.Name,
			Name:        sf.Name,
			Index:       index,
			Type:        sf.Type,
		})
	}
	return nil
}

// fingerprint 计算 t 的布局指纹：字段、类型、标签，以及影响编译结果的配置与元数据文件状态。
func (f *Factory) fingerprint(t reflect.Type) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(t.PkgPath())
	_, _ = h.WriteString(t.String())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		_, _ = h.WriteString(sf.Name)
		_, _ = h.WriteString(sf.Type.String())
		_, _ = h.WriteString(string(sf.Tag))
		_, _ = h.WriteString(strconv.FormatBool(sf.Anonymous))
	}
	_, _ = h.WriteString(fmt.Sprintf("%T%+v", f.reader, f.reader))
	_, _ = h.WriteString(strconv.FormatBool(f.includeInterface))
	if _, st, ok := f.driver.Locate(t); ok {
		_, _ = h.WriteString(st.ModTime().UTC().String())
		_, _ = h.WriteString(strconv.FormatInt(st.Size(), 10))
	}
	return h.Sum64()
}
