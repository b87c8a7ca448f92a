package metadata

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/garden-serializer/internal/compressor"
	"github.com/lk2023060901/garden-serializer/internal/json"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

// FileCache 将编译后的元数据以 JSON 形式缓存到目录中（对应 cacheDir 配置），
// 可选用 zstd 压缩。目录在第一次写入时才创建。
type FileCache struct {
	dir        string
	compressor compressor.Compressor
}

type cacheEntry struct {
	Class       string           `json:"class"`
	Fingerprint uint64           `json:"fingerprint"`
	Properties  []cachedProperty `json:"properties"`
}

type cachedProperty struct {
	Annotations
	Name  string `json:"name"`
	Index []int  `json:"index"`
}

// NewFileCache 创建以 dir 为根目录的缓存，c 为 nil 时不压缩。
func NewFileCache(dir string, c compressor.Compressor) *FileCache {
	if c == nil {
		c = compressor.NopCompressor{}
	}
	return &FileCache{dir: dir, compressor: c}
}

// Dir 返回缓存目录。
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(t reflect.Type) string {
	key := t.PkgPath() + "." + t.Name()
	key = strings.NewReplacer("/", "-", "\\", "-", "[", "_", "]", "_", ",", "_", "*", "_", " ", "").Replace(key)
	return filepath.Join(c.dir, key+".json"+c.compressor.Extension())
}

// Load 读取 t 的缓存元数据，指纹不一致或文件不存在时返回 ok=false。
func (c *FileCache) Load(t reflect.Type, fingerprint uint64) (*ClassMetadata, bool, error) {
	p := c.path(t)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, merr.WrapErrMetadataCache(p, err)
	}
	// 损坏的缓存文件视为未命中，稍后会被覆盖。
	plain, err := c.compressor.Decompress(nil, data)
	if err != nil {
		return nil, false, nil
	}
	var entry cacheEntry
	if err := json.Unmarshal(plain, &entry); err != nil {
		return nil, false, nil
	}
	if entry.Fingerprint != fingerprint {
		return nil, false, nil
	}

	cm := &ClassMetadata{
		Name:        entry.Class,
		Type:        t,
		Fingerprint: entry.Fingerprint,
		Properties:  make([]*PropertyMetadata, 0, len(entry.Properties)),
	}
	for _, cp := range entry.Properties {
		sf, ok := fieldByIndex(t, cp.Index)
		if !ok {
			return nil, false, nil
		}
		cm.Properties = append(cm.Properties, &PropertyMetadata{
			Annotations: cp.Annotations,
			Class:       entry.Class,
			Name:        cp.Name,
			Index:       cp.Index,
			Type:        sf.Type,
		})
	}
	return cm, true, nil
}

// Store 写入 cm 的缓存文件。
func (c *FileCache) Store(cm *ClassMetadata) error {
	entry := cacheEntry{
		Class:       cm.Name,
		Fingerprint: cm.Fingerprint,
		Properties:  make([]cachedProperty, 0, len(cm.Properties)),
	}
	for _, p := range cm.Properties {
		entry.Properties = append(entry.Properties, cachedProperty{
			Annotations: p.Annotations,
			Name:        p.Name,
			Index:       p.Index,
		})
	}
	plain, err := json.Marshal(entry)
	if err != nil {
		return merr.WrapErrMetadataCache(c.dir, err)
	}
	data, err := c.compressor.Compress(nil, plain)
	if err != nil {
		return merr.WrapErrMetadataCache(c.dir, err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return merr.WrapErrMetadataCache(c.dir, err)
	}
	p := c.path(cm.Type)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return merr.WrapErrMetadataCache(p, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return merr.WrapErrMetadataCache(p, err)
	}
	return nil
}

// fieldByIndex 与 reflect.Type.FieldByIndex 相同，但索引越界时返回 false 而不是 panic。
func fieldByIndex(t reflect.Type, index []int) (reflect.StructField, bool) {
	var sf reflect.StructField
	cur := t
	for i, idx := range index {
		if cur.Kind() != reflect.Struct || idx < 0 || idx >= cur.NumField() {
			return reflect.StructField{}, false
		}
		sf = cur.Field(idx)
		if i < len(index)-1 {
			cur = sf.Type
		}
	}
	return sf, len(index) > 0
}
