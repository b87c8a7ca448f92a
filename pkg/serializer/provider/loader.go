package provider

import (
	"sort"

	"github.com/samber/lo"

	"github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
	"github.com/lk2023060901/garden-serializer/pkg/util/viper"
)

// EnvPrefix 为覆盖配置文件的环境变量前缀，例如 GARDEN_SERIALIZER_DEBUG=true。
const EnvPrefix = "GARDEN"

// MetadataDir 将一个 Go 包路径前缀映射到元数据目录。
// 包路径中含有 "."，无法作为 viper 的键，因此在文件中以列表形式书写。
type MetadataDir struct {
	Prefix string `mapstructure:"prefix"`
	Dir    string `mapstructure:"dir"`
}

// FileConfig 为配置文件 serializer 段的内容：
//
//	serializer:
//	  debug: false
//	  naming_strategy: CamelCase
//	  naming_separator: "-"
//	  naming_lower_case: true
//	  cache_dir: /var/cache/garden
//	  cache_compression: true
//	  include_interface_metadata: true
//	  metadata_dirs:
//	    - prefix: github.com/acme/app/model
//	      dir: ./metadata
//	  visitors: [protobuf, json-compat]
type FileConfig struct {
	Debug                    bool          `mapstructure:"debug"`
	NamingStrategy           *string       `mapstructure:"naming_strategy"`
	NamingSeparator          *string       `mapstructure:"naming_separator"`
	NamingLowerCase          *bool         `mapstructure:"naming_lower_case"`
	CacheDir                 *string       `mapstructure:"cache_dir"`
	CacheCompression         *bool         `mapstructure:"cache_compression"`
	IncludeInterfaceMetadata *bool         `mapstructure:"include_interface_metadata"`
	MetadataDirs             []MetadataDir `mapstructure:"metadata_dirs"`
	// Visitors 为额外启用的具名访问者，见 VisitorNames。
	Visitors []string `mapstructure:"visitors"`
}

// File 为配置文件的全部内容。
type File struct {
	Serializer FileConfig `mapstructure:"serializer"`
	Log        log.Config `mapstructure:"log"`
}

type namedVisitor struct {
	format string
	ser    visitor.SerializationVisitor
	de     visitor.DeserializationVisitor
}

// namedVisitors 为可在配置文件中按名称启用的访问者。
var namedVisitors = map[string]namedVisitor{
	"protobuf":    {format: visitor.FormatProtobuf, ser: visitor.Protobuf{}, de: visitor.Protobuf{}},
	"json-compat": {format: visitor.FormatJSON, ser: visitor.CompatJSON{}, de: visitor.CompatJSON{}},
	"json-pretty": {format: visitor.FormatJSON, ser: visitor.JSON{Indent: "  "}},
	"xml-pretty":  {format: visitor.FormatXML, ser: visitor.XML{Indent: "  "}},
	"yml-indent4": {format: visitor.FormatYAML, ser: visitor.YAML{Indent: 4}},
}

// VisitorNames 返回可在配置文件 visitors 中使用的名称（升序）。
func VisitorNames() []string {
	names := lo.Keys(namedVisitors)
	sort.Strings(names)
	return names
}

// LoadFile 读取 YAML/JSON 配置文件，环境变量（前缀 EnvPrefix）可覆盖文件中已有的键。
func LoadFile(path string) (*File, error) {
	c := viper.New()
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	c.AutomaticEnv(EnvPrefix)

	var f File
	if err := c.Unmarshal(&f); err != nil {
		return nil, merr.WrapErrConfigLoad(path, err)
	}
	return &f, nil
}

// LoadConfig 读取配置文件的 serializer 段并转换为 Config。
func LoadConfig(path string) (*Config, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Serializer.Config()
}

// Config 将文件配置转换为 Config。回调类配置（处理器、监听器、构造器）只能在代码中设置。
func (fc FileConfig) Config() (*Config, error) {
	cfg := &Config{
		Debug:                    fc.Debug,
		NamingSeparator:          fc.NamingSeparator,
		NamingLowerCase:          fc.NamingLowerCase,
		CacheDir:                 fc.CacheDir,
		CacheCompression:         fc.CacheCompression,
		IncludeInterfaceMetadata: fc.IncludeInterfaceMetadata,
	}
	if fc.NamingStrategy != nil {
		cfg.NamingStrategy = *fc.NamingStrategy
	}
	if fc.MetadataDirs != nil {
		cfg.MetadataDirs = make(map[string]string, len(fc.MetadataDirs))
		for _, d := range fc.MetadataDirs {
			if d.Prefix == "" || d.Dir == "" {
				return nil, merr.WrapErrConfigInvalid("metadata_dirs", d, "prefix and dir are required")
			}
			cfg.MetadataDirs[d.Prefix] = d.Dir
		}
	}
	for _, name := range fc.Visitors {
		nv, ok := namedVisitors[name]
		if !ok {
			return nil, merr.WrapErrConfigInvalid("visitors", name, "unknown visitor")
		}
		if nv.ser != nil {
			if cfg.SerializationVisitors == nil {
				cfg.SerializationVisitors = make(visitor.SerializationTable)
			}
			cfg.SerializationVisitors[nv.format] = nv.ser
		}
		if nv.de != nil {
			if cfg.DeserializationVisitors == nil {
				cfg.DeserializationVisitors = make(visitor.DeserializationTable)
			}
			cfg.DeserializationVisitors[nv.format] = nv.de
		}
	}
	return cfg, nil
}
