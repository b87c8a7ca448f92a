package visitor

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultXMLRoot 为根元素名。
	DefaultXMLRoot = "result"

	xmlEntry    = "entry"
	xmlAttrKey  = "key"
	xmlAttrType = "type"
	xmlAttrNil  = "nil"
	xmlTypeList = "list"
	xmlTypeMap  = "map"
)

// XML 把通用数据写为元素树：
//
//	map   -> 子元素（键不是合法元素名时写为 <entry key="...">）
//	list  -> <name type="list"><entry>...</entry></name>
//	nil   -> <name nil="true"/>
//	标量  -> 文本
//
// 解码时标量一律得到字符串，由对象图遍历按目标类型转换。
type XML struct {
	Root   string
	Indent string
}

var (
	_ SerializationVisitor   = XML{}
	_ DeserializationVisitor = XML{}
)

func (v XML) Encode(data any) ([]byte, error) {
	root := v.Root
	if root == "" {
		root = DefaultXMLRoot
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if v.Indent != "" {
		enc.Indent("", v.Indent)
	}
	if err := encodeXMLElement(enc, xml.StartElement{Name: xml.Name{Local: root}}, normalize(data)); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeXMLElement(enc *xml.Encoder, start xml.StartElement, data any) error {
	switch d := data.(type) {
	case nil:
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: xmlAttrNil}, Value: "true"})
		return encodeXMLText(enc, start, "")
	case map[string]any:
		if len(d) == 0 {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: xmlAttrType}, Value: xmlTypeMap})
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, k := range sortedKeys(d) {
			child := xml.StartElement{Name: xml.Name{Local: k}}
			if !isXMLName(k) {
				child = xml.StartElement{
					Name: xml.Name{Local: xmlEntry},
					Attr: []xml.Attr{{Name: xml.Name{Local: xmlAttrKey}, Value: k}},
				}
			}
			if err := encodeXMLElement(enc, child, d[k]); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())
	case []any:
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: xmlAttrType}, Value: xmlTypeList})
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, e := range d {
			if err := encodeXMLElement(enc, xml.StartElement{Name: xml.Name{Local: xmlEntry}}, e); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())
	default:
		text, err := xmlScalar(d)
		if err != nil {
			return err
		}
		return encodeXMLText(enc, start, text)
	}
}

func encodeXMLText(enc *xml.Encoder, start xml.StartElement, text string) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func xmlScalar(v any) (string, error) {
	switch d := v.(type) {
	case string:
		return d, nil
	case bool:
		return strconv.FormatBool(d), nil
	case int64:
		return strconv.FormatInt(d, 10), nil
	case uint64:
		return strconv.FormatUint(d, 10), nil
	case float64:
		return strconv.FormatFloat(d, 'g', -1, 64), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(d), nil
	case fmt.Stringer:
		return d.String(), nil
	default:
		return "", errors.Newf("xml: unsupported value of type %T", v)
	}
}

// isXMLName 判断 s 能否直接作为元素名。
func isXMLName(s string) bool {
	if s == "" || strings.HasPrefix(strings.ToLower(s), "xml") {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

func (XML) Decode(data []byte) (any, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.New("xml: missing root element")
		}
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeXMLElement(dec, start)
		}
	}
}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	if xmlAttr(start.Attr, xmlAttrNil) == "true" {
		return nil, dec.Skip()
	}
	kind := xmlAttr(start.Attr, xmlAttrType)

	var (
		text   strings.Builder
		keys   []string
		values []any
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			key := t.Name.Local
			if k := xmlAttr(t.Attr, xmlAttrKey); key == xmlEntry && k != "" {
				key = k
			}
			keys = append(keys, key)
			values = append(values, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			switch {
			case kind == xmlTypeList:
				if values == nil {
					values = []any{}
				}
				return values, nil
			case kind == xmlTypeMap || len(keys) > 0:
				m := make(map[string]any, len(keys))
				for i, k := range keys {
					m[k] = values[i]
				}
				return m, nil
			default:
				return text.String(), nil
			}
		}
	}
}

func xmlAttr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
