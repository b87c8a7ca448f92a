package visitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/garden-serializer/pkg/serializer/visitor"
)

func sampleTree() map[string]any {
	return map[string]any{
		"id":    int64(7),
		"name":  "Ann <admin>",
		"ratio": 0.5,
		"tags":  []any{"a", "b"},
		"owner": map[string]any{"email": "ann@example.com", "active": true},
		"none":  nil,
	}
}

func TestDefaultTables(t *testing.T) {
	ser := visitor.SerializationTable{}
	visitor.AddDefaultSerializationVisitors(ser)
	de := visitor.DeserializationTable{}
	visitor.AddDefaultDeserializationVisitors(de)

	assert.Equal(t, []string{"json", "msgpack", "xml", "yml"}, ser.Formats())
	assert.Equal(t, ser.Formats(), de.Formats())
	assert.ElementsMatch(t, visitor.DefaultFormats, ser.Formats())
}

func TestJSON(t *testing.T) {
	v := visitor.JSON{}
	out, err := v.Encode(sampleTree())
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":7,"name":"Ann \u003cadmin\u003e","none":null,"owner":{"active":true,"email":"ann@example.com"},"ratio":0.5,"tags":["a","b"]}`,
		string(out))

	back, err := v.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, any(sampleTree()), back)

	_, err = v.Decode([]byte(`{"id":`))
	assert.Error(t, err)
}

func TestCompatJSON(t *testing.T) {
	v := visitor.CompatJSON{}
	out, err := v.Encode(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1}`, string(out))

	back, err := v.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "x", "b": float64(1)}, back)
}

func TestYAML(t *testing.T) {
	v := visitor.YAML{}
	out, err := v.Encode(map[string]any{"name": "Ann", "tags": []any{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "name: Ann\ntags:\n  - a\n", string(out))

	back, err := v.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann", "tags": []any{"a"}}, back)

	back, err = v.Decode([]byte("1: one\n2: [3, 4]\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": "one", "2": []any{int64(3), int64(4)}}, back)
}

func TestMsgpack(t *testing.T) {
	v := visitor.Msgpack{}
	out, err := v.Encode(sampleTree())
	require.NoError(t, err)

	again, err := v.Encode(sampleTree())
	require.NoError(t, err)
	assert.Equal(t, out, again)

	back, err := v.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, any(sampleTree()), back)
}

func TestProtobuf(t *testing.T) {
	v := visitor.Protobuf{}
	out, err := v.Encode(sampleTree())
	require.NoError(t, err)

	back, err := v.Decode(out)
	require.NoError(t, err)
	want := sampleTree()
	want["id"] = float64(7)
	assert.Equal(t, any(want), back)

	_, err = v.Encode(map[string]any{"c": complex(1, 2)})
	assert.Error(t, err)
}

func TestXML(t *testing.T) {
	v := visitor.XML{}
	out, err := v.Encode(sampleTree())
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
		`<result><id>7</id><name>Ann &lt;admin&gt;</name><none nil="true"></none>`+
		`<owner><active>true</active><email>ann@example.com</email></owner>`+
		`<ratio>0.5</ratio><tags type="list"><entry>a</entry><entry>b</entry></tags></result>`,
		string(out))

	back, err := v.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":    "7",
		"name":  "Ann <admin>",
		"ratio": "0.5",
		"tags":  []any{"a", "b"},
		"owner": map[string]any{"email": "ann@example.com", "active": "true"},
		"none":  nil,
	}, back)
}

func TestXMLShapes(t *testing.T) {
	v := visitor.XML{Root: "doc", Indent: "  "}
	tree := map[string]any{
		"empty_list": []any{},
		"empty_map":  map[string]any{},
		"labels":     map[string]any{"a b": "x", "1st": "y"},
	}
	out, err := v.Encode(tree)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<entry key="a b">x</entry>`)
	assert.Contains(t, string(out), "<doc>\n")

	back, err := v.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, any(map[string]any{
		"empty_list": []any{},
		"empty_map":  map[string]any{},
		"labels":     map[string]any{"a b": "x", "1st": "y"},
	}), back)

	scalar, err := v.Encode("hi")
	require.NoError(t, err)
	back, err = v.Decode(scalar)
	require.NoError(t, err)
	assert.Equal(t, "hi", back)

	_, err = v.Decode([]byte(""))
	assert.Error(t, err)
	_, err = v.Encode(map[string]any{"c": complex(1, 2)})
	assert.Error(t, err)
}

func TestFuncAdapters(t *testing.T) {
	enc := visitor.EncodeFunc(func(any) ([]byte, error) { return []byte("x"), nil })
	out, err := enc.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "x", string(out))

	dec := visitor.DecodeFunc(func(b []byte) (any, error) { return string(b), nil })
	back, err := dec.Decode([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, "y", back)
}
