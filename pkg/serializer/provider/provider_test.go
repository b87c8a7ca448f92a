package provider_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lk2023060901/garden-serializer/pkg/log"
	"github.com/lk2023060901/garden-serializer/pkg/metrics"
	"github.com/lk2023060901/garden-serializer/pkg/serializer"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/handler"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/metadata"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/naming"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/provider"
	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
	"github.com/lk2023060901/garden-serializer/pkg/util/merr"
)

type contact struct {
	FirstName string
	Email     string `serializer:"mail"`
}

// upperStrategy 为调用方自带的命名策略，不理会注解。
type upperStrategy struct{}

func (upperStrategy) TranslateName(p *metadata.PropertyMetadata) string {
	return strings.ToUpper(p.Name)
}

func ptr[T any](v T) *T { return &v }

type ProviderSuite struct {
	suite.Suite
}

func (s *ProviderSuite) serialize(cfg *provider.Config, v any) string {
	ser, err := provider.NewFactory(cfg).Serializer()
	s.Require().NoError(err)
	out, err := ser.Serialize(v, visitor.FormatJSON)
	s.Require().NoError(err)
	return string(out)
}

func (s *ProviderSuite) TestMemoization() {
	f := provider.NewFactory(&provider.Config{Debug: true})

	b1, err := f.Builder()
	s.Require().NoError(err)
	b2, err := f.Builder()
	s.Require().NoError(err)
	s.Same(b1, b2)
	s.True(b1.Debug())

	s1, err := f.Serializer()
	s.Require().NoError(err)
	s2, err := f.Serializer()
	s.Require().NoError(err)
	s.Same(s1, s2)

	b3, err := f.Builder()
	s.Require().NoError(err)
	s.Same(b1, b3)
}

func (s *ProviderSuite) TestDefaultNaming() {
	ser, err := provider.NewFactory(nil).Serializer()
	s.Require().NoError(err)
	s.Equal("foo_bar", naming.Resolve(ser.NamingStrategy(), "fooBar"))
	s.Equal(`{"first_name":"Ann","mail":"a@b.c"}`, s.serialize(nil, contact{FirstName: "Ann", Email: "a@b.c"}))
}

func (s *ProviderSuite) TestLiteralResolution() {
	cases := []struct {
		cfg  provider.Config
		want string
	}{
		{provider.Config{NamingStrategy: "IdenticalProperty"}, "fooBar"},
		{provider.Config{NamingStrategy: "CamelCase", NamingSeparator: ptr("_")}, "foo_bar"},
		{provider.Config{NamingStrategy: "CamelCase"}, "foo_bar"},
		{provider.Config{NamingStrategy: "CamelCase", NamingSeparator: ptr("-")}, "foo-bar"},
		{provider.Config{NamingStrategy: "CamelCase", NamingLowerCase: ptr(false)}, "Foo_Bar"},
	}
	for _, c := range cases {
		strategy, err := provider.ResolveNamingStrategy(&c.cfg)
		s.Require().NoError(err)
		s.IsType(&naming.SerializedName{}, strategy)
		s.Equal(c.want, naming.Resolve(strategy, "fooBar"))
	}

	strategy, err := provider.ResolveNamingStrategy(&provider.Config{})
	s.NoError(err)
	s.Nil(strategy)
}

func (s *ProviderSuite) TestUnknownLiteral() {
	for _, value := range []any{"snake", 42, []string{"CamelCase"}} {
		_, err := provider.ResolveNamingStrategy(&provider.Config{NamingStrategy: value})
		s.ErrorIs(err, merr.ErrUnsupportedStrategy)

		var unsupported *provider.UnsupportedStrategyError
		s.Require().True(errors.As(err, &unsupported))
		s.Equal(value, unsupported.Value)
		s.Equal([]string{"IdenticalProperty", "CamelCase"}, unsupported.Allowed)
	}

	_, err := provider.ResolveNamingStrategy(&provider.Config{NamingStrategy: "snake"})
	s.EqualError(err, "unknown property naming strategy 'snake', allowed values are 'IdenticalProperty' or 'CamelCase'")

	for _, value := range []any{(*naming.CamelCase)(nil), (*naming.SerializedName)(nil), naming.Func(nil)} {
		_, err = provider.ResolveNamingStrategy(&provider.Config{NamingStrategy: value})
		s.ErrorIs(err, merr.ErrUnsupportedStrategy)
	}
	_, err = provider.NewFactory(&provider.Config{NamingStrategy: (*naming.CamelCase)(nil)}).Serializer()
	s.ErrorIs(err, merr.ErrUnsupportedStrategy)
}

func (s *ProviderSuite) TestUnknownLiteralIsNotCached() {
	calls := atomic.NewInt32(0)
	f := provider.NewFactory(&provider.Config{
		NamingStrategy:    "snake",
		ConfigureHandlers: func(*handler.Registry) { calls.Inc() },
	})

	for i := 0; i < 2; i++ {
		_, err := f.Serializer()
		var unsupported *provider.UnsupportedStrategyError
		s.Require().True(errors.As(err, &unsupported))
		s.Equal("snake", unsupported.Value)

		_, err = f.Builder()
		s.ErrorIs(err, merr.ErrUnsupportedStrategy)
	}
	s.EqualValues(4, calls.Load())
	s.Panics(func() { f.MustSerializer() })
}

func (s *ProviderSuite) TestInstancePassthrough() {
	c := contact{FirstName: "Ann", Email: "a@b.c"}

	strategy, err := provider.ResolveNamingStrategy(&provider.Config{NamingStrategy: upperStrategy{}})
	s.Require().NoError(err)
	s.Equal(upperStrategy{}, strategy)

	s.Equal(`{"EMAIL":"a@b.c","FIRSTNAME":"Ann"}`, s.serialize(&provider.Config{NamingStrategy: upperStrategy{}}, c))
	s.Equal(`{"FirstName":"Ann","mail":"a@b.c"}`, s.serialize(&provider.Config{NamingStrategy: "IdenticalProperty"}, c))

	wrapped := naming.NewSerializedName(upperStrategy{})
	s.Equal(`{"FIRSTNAME":"Ann","mail":"a@b.c"}`, s.serialize(&provider.Config{NamingStrategy: wrapped}, c))
}

func (s *ProviderSuite) TestVisitorOverlay() {
	custom := visitor.EncodeFunc(func(any) ([]byte, error) { return []byte("custom-json"), nil })
	cfg := &provider.Config{SerializationVisitors: visitor.SerializationTable{"json": custom}}
	f := provider.NewFactory(cfg)

	b, err := f.Builder()
	s.Require().NoError(err)
	s.IsType(visitor.XML{}, b.SerializationVisitors()["xml"])
	s.Equal([]string{"json", "msgpack", "xml", "yml"}, b.SerializationVisitors().Formats())
	// 未配置的反序列化表在 Builder 上保持为空，默认值在构建时补齐。
	s.Empty(b.DeserializationVisitors())

	ser, err := f.Serializer()
	s.Require().NoError(err)
	s.Equal([]string{"json", "msgpack", "xml", "yml"}, ser.SerializationFormats())
	s.Equal([]string{"json", "msgpack", "xml", "yml"}, ser.DeserializationFormats())
	out, err := ser.Serialize(contact{FirstName: "Ann"}, "json")
	s.Require().NoError(err)
	s.Equal("custom-json", string(out))

	out, err = ser.Serialize(contact{FirstName: "Ann"}, "xml")
	s.Require().NoError(err)
	s.Contains(string(out), "<first_name>Ann</first_name>")

	s.Len(cfg.SerializationVisitors, 1)
}

func (s *ProviderSuite) TestDeserializationVisitorOverlay() {
	cfg := &provider.Config{DeserializationVisitors: visitor.DeserializationTable{
		"protobuf": visitor.Protobuf{},
	}}
	f := provider.NewFactory(cfg)
	b, err := f.Builder()
	s.Require().NoError(err)
	s.Equal([]string{"json", "msgpack", "protobuf", "xml", "yml"}, b.DeserializationVisitors().Formats())
	s.Empty(b.SerializationVisitors())

	ser, err := f.Serializer()
	s.Require().NoError(err)
	s.Equal([]string{"json", "msgpack", "protobuf", "xml", "yml"}, ser.DeserializationFormats())
	s.Equal([]string{"json", "msgpack", "xml", "yml"}, ser.SerializationFormats())
}

func (s *ProviderSuite) TestBuilderStableWhileSerializerBuilds() {
	f := provider.NewFactory(&provider.Config{})
	b, err := f.Builder()
	s.Require().NoError(err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			got, err := f.Builder()
			if err != nil || len(got.SerializationVisitors()) != 0 || len(got.DeserializationVisitors()) != 0 {
				s.Fail("memoized builder changed", "iteration %d", i)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		_, err := f.Serializer()
		s.NoError(err)
	}()
	wg.Wait()

	s.Same(b, lo.Must(f.Builder()))
	s.Empty(b.SerializationVisitors())
	s.Empty(b.DeserializationVisitors())
	s.Equal([]string{"json", "msgpack", "xml", "yml"}, f.MustSerializer().SerializationFormats())
}

func (s *ProviderSuite) TestConcurrentFirstAccess() {
	constructed := atomic.NewInt32(0)
	f := provider.NewFactory(&provider.Config{
		ConfigureHandlers: func(r *handler.Registry) {
			constructed.Inc()
			handler.RegisterDefaults(r)
		},
	})
	before := testutil.ToFloat64(metrics.Constructions.WithLabelValues(metrics.BuilderComponent, metrics.SuccessLabel))

	const callers = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]*serializer.Serializer, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ser, err := f.Serializer()
			s.NoError(err)
			got[i] = ser
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < callers; i++ {
		s.Same(got[0], got[i])
	}
	s.EqualValues(1, constructed.Load())
	s.Equal(before+1, testutil.ToFloat64(metrics.Constructions.WithLabelValues(metrics.BuilderComponent, metrics.SuccessLabel)))
}

func (s *ProviderSuite) TestOverridesApplied() {
	dir := s.T().TempDir()
	cacheDir := filepath.Join(s.T().TempDir(), "cache")
	cfg := &provider.Config{
		AnnotationReader:         metadata.NewTagReader("json"),
		CacheDir:                 ptr(cacheDir),
		CacheCompression:         ptr(true),
		IncludeInterfaceMetadata: ptr(true),
		MetadataDirs:             map[string]string{"github.com/acme": dir},
	}
	b, err := provider.NewFactory(cfg).Builder()
	s.Require().NoError(err)
	s.Equal(cacheDir, b.CacheDir())
	s.True(b.CacheCompression())
	s.Equal(map[string]string{"github.com/acme": dir}, b.MetadataDirs())
	s.NoDirExists(cacheDir)

	cfg.MetadataDirs["github.com/other"] = dir
	s.Len(b.MetadataDirs(), 1)
}

func (s *ProviderSuite) TestLogging() {
	core, logs := observer.New(zapcore.DebugLevel)
	f := provider.NewFactory(&provider.Config{CacheDir: ptr(s.T().TempDir())},
		provider.WithLogger(&log.MLogger{Logger: zap.New(core)}))

	_, err := f.Serializer()
	s.Require().NoError(err)
	_, err = f.Serializer()
	s.Require().NoError(err)

	s.Equal(1, logs.FilterMessage("serializer builder constructed").Len())
	s.Equal(1, logs.FilterMessage("serializer constructed").Len())
	s.Equal(1, logs.FilterMessage("apply override").FilterField(zap.String("key", "cacheDir")).Len())
}

func TestProvider(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serializer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	metaDir := t.TempDir()
	path := writeConfig(t, `
serializer:
  debug: true
  naming_strategy: CamelCase
  naming_separator: "-"
  cache_compression: true
  include_interface_metadata: true
  metadata_dirs:
    - prefix: github.com/acme/app
      dir: `+metaDir+`
  visitors: [protobuf, json-compat]
log:
  level: debug
`)

	f, err := provider.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", f.Log.Level)

	cfg, err := provider.LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "CamelCase", cfg.NamingStrategy)
	assert.Equal(t, "-", *cfg.NamingSeparator)
	assert.Nil(t, cfg.NamingLowerCase)
	assert.Nil(t, cfg.CacheDir)
	assert.True(t, *cfg.CacheCompression)
	assert.True(t, *cfg.IncludeInterfaceMetadata)
	assert.Equal(t, map[string]string{"github.com/acme/app": metaDir}, cfg.MetadataDirs)
	assert.IsType(t, visitor.CompatJSON{}, cfg.SerializationVisitors["json"])
	assert.IsType(t, visitor.Protobuf{}, cfg.DeserializationVisitors["protobuf"])

	ser, err := provider.NewFactory(cfg).Serializer()
	require.NoError(t, err)
	assert.Equal(t, []string{"json", "msgpack", "protobuf", "xml", "yml"}, ser.SerializationFormats())
	assert.Equal(t, "first-name", naming.Resolve(ser.NamingStrategy(), "FirstName"))
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "serializer:\n  naming_strategy: IdenticalProperty\n")
	t.Setenv("GARDEN_SERIALIZER_NAMING_STRATEGY", "snake")

	cfg, err := provider.LoadConfig(path)
	require.NoError(t, err)
	_, err = provider.NewFactory(cfg).Serializer()
	assert.ErrorIs(t, err, merr.ErrUnsupportedStrategy)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := provider.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, merr.ErrConfigLoad)

	_, err = provider.LoadConfig(writeConfig(t, "serializer:\n  visitors: [bson]\n"))
	assert.ErrorIs(t, err, merr.ErrConfigInvalid)

	_, err = provider.LoadConfig(writeConfig(t, "serializer:\n  metadata_dirs:\n    - prefix: github.com/acme\n"))
	assert.ErrorIs(t, err, merr.ErrConfigInvalid)

	assert.Contains(t, provider.VisitorNames(), "protobuf")
}
