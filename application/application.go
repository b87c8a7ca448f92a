package application

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	zlog "github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/provider"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

const (
	// DefaultConfigPath 为默认配置文件路径，不存在时使用空配置。
	DefaultConfigPath = "./serializer.yaml"
	// ConfigPathEnv 为指定配置文件路径的环境变量。
	ConfigPathEnv = "GARDEN_CONFIG_FILE_PATH"
)

// Application 是 serializer 进程的运行时容器。
// 它负责加载配置、初始化日志，并持有按配置创建的 provider.Factory。
type Application struct {
	configPath string
	file       *provider.File
	factory    *provider.Factory
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run 加载配置并完成初始化，配置文件路径按以下优先级确定：
//  1. 默认：./serializer.yaml（文件不存在时使用空配置）
//  2. 环境变量：GARDEN_CONFIG_FILE_PATH
//  3. 命令行：--config <path>，即参数 configPath
//
// 由环境变量或命令行指定的文件必须存在。
func (a *Application) Run(configPath string) error {
	if err := a.loadConfig(configPath); err != nil {
		return err
	}
	if err := a.initLogging(); err != nil {
		return err
	}

	cfg, err := a.file.Serializer.Config()
	if err != nil {
		return err
	}
	a.factory = provider.NewFactory(cfg)
	return nil
}

// ConfigPath 返回实际加载的配置文件路径，未加载任何文件时为空。
func (a *Application) ConfigPath() string {
	return a.configPath
}

// File returns the loaded configuration, if any.
func (a *Application) File() *provider.File {
	return a.file
}

// Factory 返回 Run 之后可用的 Factory。
func (a *Application) Factory() *provider.Factory {
	return a.factory
}

// Convert 从 r 读取 from 格式的数据，转换为 to 格式后写入 w。
// 数据先反序列化为通用树，再序列化为目标格式。
func (a *Application) Convert(r io.Reader, w io.Writer, from, to string) error {
	if a.factory == nil {
		return errors.New("application is not running, call Run first")
	}
	ser, err := a.factory.Serializer()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read input")
	}
	var tree any
	if err := ser.Deserialize(data, from, &tree); err != nil {
		return err
	}
	out, err := ser.Serialize(tree, to)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

// loadConfig resolves config file path and loads it via provider.LoadFile.
func (a *Application) loadConfig(flagPath string) error {
	configPath, required := DefaultConfigPath, false
	if envPath := getenvDefault(ConfigPathEnv, ""); envPath != "" {
		configPath, required = envPath, true
	}
	if flagPath != "" {
		configPath, required = flagPath, true
	}

	if !required {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			a.file = &provider.File{}
			return nil
		}
	}

	f, err := provider.LoadFile(configPath)
	if err != nil {
		return err
	}
	a.configPath = configPath
	a.file = f
	return nil
}

// initLogging 先按 GARDEN_LOG_* 环境变量初始化全局 Logger，
// 配置文件中存在 log 段（level 非空）时以其为准。
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	if a.file.Log.Level == "" {
		return nil
	}

	cfg := a.file.Log
	logger, props, err := zlog.InitLogger(&cfg)
	if err != nil {
		return merr.WrapErrConfigInvalid("log", cfg.Level, err.Error())
	}
	zlog.ReplaceGlobals(logger, props)
	zlog.Debug("logger initialized from config", zap.String("path", a.configPath))
	return nil
}

// initGlobalLoggerFromEnv configures the process-wide logger based on GARDEN_LOG_* env vars.
//
// Priority:
//   - GARDEN_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - GARDEN_LOG_LEVEL: log level (default "info").
//   - GARDEN_LOG_STDOUT: whether to log to stdout (default false).
//   - GARDEN_LOG_FILE_DIR: log directory.
//   - GARDEN_LOG_FILE: log file name (empty means no file).
//   - GARDEN_LOG_FORMAT: log format ("console" or "json", default "console").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("GARDEN_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:  getenvDefault("GARDEN_LOG_LEVEL", "info"),
		Format: getenvDefault("GARDEN_LOG_FORMAT", "console"),
		Stdout: getenvBool("GARDEN_LOG_STDOUT", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("GARDEN_LOG_FILE_DIR", ""),
			Filename: getenvDefault("GARDEN_LOG_FILE", ""),
		},
	}

	// 未开启时丢弃全部输出。
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return merr.WrapErrConfigInvalid("GARDEN_LOG_LEVEL", cfg.Level, err.Error())
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
