package metadata

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

// metadataExts 为元数据文件按优先级尝试的扩展名，JSON 作为 YAML 子集同样由 yaml.v3 解析。
var metadataExts = []string{".yml", ".yaml", ".json"}

// FileDriver 从元数据目录加载类型元数据（对应 metadataDirs 配置）。
//
// dirs 的键为 Go 包路径前缀，值为目录。对包路径为 p、类型名为 T 的结构体：
// 选取最长的匹配前缀 prefix，查找 <dir>/<p 去掉 prefix 的剩余部分>/T.yml|.yaml|.json。
// 文件内容：
//
//	properties:
//	  FieldName:
//	    serialized_name: wire_name
//	    exclude: false
type FileDriver struct {
	prefixes []string
	dirs     map[string]string
}

type fileMetadata struct {
	Properties map[string]Annotations `yaml:"properties"`
}

// NewFileDriver 创建 FileDriver，dirs 会被复制。
func NewFileDriver(dirs map[string]string) *FileDriver {
	d := &FileDriver{dirs: make(map[string]string, len(dirs))}
	for prefix, dir := range dirs {
		d.dirs[prefix] = dir
	}
	d.prefixes = lo.Keys(d.dirs)
	sort.Slice(d.prefixes, func(i, j int) bool {
		if len(d.prefixes[i]) != len(d.prefixes[j]) {
			return len(d.prefixes[i]) > len(d.prefixes[j])
		}
		return d.prefixes[i] < d.prefixes[j]
	})
	return d
}

// Locate 返回 t 对应的元数据文件路径及其状态，不存在时返回 ok=false。
func (d *FileDriver) Locate(t reflect.Type) (string, os.FileInfo, bool) {
	if d == nil || t.Name() == "" {
		return "", nil, false
	}
	pkg := t.PkgPath()
	for _, prefix := range d.prefixes {
		if !strings.HasPrefix(pkg, prefix) {
			continue
		}
		rel := strings.Trim(strings.TrimPrefix(pkg, prefix), "/")
		base := filepath.Join(d.dirs[prefix], filepath.FromSlash(rel), simpleName(t))
		for _, ext := range metadataExts {
			p := base + ext
			if st, err := os.Stat(p); err == nil && !st.IsDir() {
				return p, st, true
			}
		}
		return "", nil, false
	}
	return "", nil, false
}

// Load 读取 t 的文件元数据，以 Go 字段名为键。
func (d *FileDriver) Load(t reflect.Type) (map[string]Annotations, bool, error) {
	p, _, ok := d.Locate(t)
	if !ok {
		return nil, false, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false, merr.WrapErrMetadataLoad(ClassName(t), err)
	}
	var fm fileMetadata
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return nil, false, merr.WrapErrMetadataLoad(ClassName(t), err)
	}
	return fm.Properties, true, nil
}
