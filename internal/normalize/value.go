package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the tag of a normalized Value
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	default:
		return "null"
	}
}

// FieldType tells the normalizer how a column is stored in the registry
type FieldType uint8

const (
	// TypeAuto keeps strings as text and turns numbers into integers
	TypeAuto FieldType = iota
	// TypeInt parses numeric-looking strings into integers
	TypeInt
	// TypeText renders numbers as their integer text
	TypeText
)

// Value is a registry attribute value: Null, Text or Integer.
// The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  int64
}

// Null returns the null value
func Null() Value { return Value{} }

// Text returns a text value
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Int returns an integer value
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Text() string { return v.text }
func (v Value) Int() int64 { return v.num }

// AsInt returns the integer payload, parsing text when it holds a number
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.num, true
	case KindText:
		n, err := strconv.ParseInt(strings.TrimSpace(v.text), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Equal reports whether both values carry the same tag and payload
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindInt:
		return v.num == o.num
	}
	return true
}

// Differs is the update test: not equal and at least one side non-null
func (v Value) Differs(o Value) bool {
	if v.IsNull() && o.IsNull() {
		return false
	}
	return !v.Equal(o)
}

// SQLLiteral renders the value for an UPDATE assignment
func (v Value) SQLLiteral() string {
	switch v.kind {
	case KindText:
		return "'" + strings.ReplaceAll(v.text, "'", "''") + "'"
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	}
	return "NULL"
}

// String renders the value without quoting; Null is empty
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	}
	return ""
}

// Interface returns the value as a plain Go value (nil, string or int64)
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindText:
		return v.text
	case KindInt:
		return v.num
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON reads null, a string or an integral number
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case string:
		*v = Text(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return &ValueError{Field: "json", Raw: x.String()}
		}
		*v = Int(n)
	default:
		return &ValueError{Field: "json", Raw: raw}
	}
	return nil
}

// ValueError is returned in strict mode for a value that is neither
// null, text nor an integer.
type ValueError struct {
	Field string
	Raw   interface{}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("unparseable value %v (%T) for field %s", e.Raw, e.Raw, e.Field)
}

// Normalizer converts raw column values into Values
type Normalizer struct {
	// Strict makes unparseable values an error instead of Null
	Strict bool
	// Coerced counts values silently turned into Null
	Coerced int
}

// Normalize converts raw into a Value for the given column
func (n *Normalizer) Normalize(field string, raw interface{}, typ FieldType) (Value, error) {
	v, ok := convert(raw, typ)
	if ok {
		return v, nil
	}
	if n.Strict {
		return Null(), &ValueError{Field: field, Raw: raw}
	}
	n.Coerced++
	return Null(), nil
}

// Of is the lenient conversion used when the caller has no field context
func Of(raw interface{}, typ FieldType) Value {
	v, _ := convert(raw, typ)
	return v
}

func convert(raw interface{}, typ FieldType) (Value, bool) {
	switch x := raw.(type) {
	case nil:
		return Null(), true
	case Value:
		return x, true
	case string:
		return fromString(x, typ)
	case []byte:
		return fromString(string(x), typ)
	case bool:
		if x {
			return fromInt(1, typ), true
		}
		return fromInt(0, typ), true
	case int:
		return fromInt(int64(x), typ), true
	case int8:
		return fromInt(int64(x), typ), true
	case int16:
		return fromInt(int64(x), typ), true
	case int32:
		return fromInt(int64(x), typ), true
	case int64:
		return fromInt(x, typ), true
	case uint8:
		return fromInt(int64(x), typ), true
	case uint16:
		return fromInt(int64(x), typ), true
	case uint32:
		return fromInt(int64(x), typ), true
	case float32:
		return fromFloat(float64(x), typ)
	case float64:
		return fromFloat(x, typ)
	case json.Number:
		return fromString(x.String(), typ)
	}
	return Null(), false
}

func fromInt(n int64, typ FieldType) Value {
	if typ == TypeText {
		return Text(strconv.FormatInt(n, 10))
	}
	return Int(n)
}

func fromFloat(f float64, typ FieldType) (Value, bool) {
	if math.IsNaN(f) {
		return Null(), true
	}
	if math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return Null(), false
	}
	// address values are integral; a fractional part is truncated
	return fromInt(int64(f), typ), true
}

func fromString(s string, typ FieldType) (Value, bool) {
	if strings.TrimSpace(s) == "" {
		return Null(), true
	}
	if typ != TypeInt {
		return Text(s), true
	}
	t := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Int(n), true
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return fromFloat(f, typ)
	}
	return Null(), false
}
