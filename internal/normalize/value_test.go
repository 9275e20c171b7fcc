package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		typ  FieldType
		want Value
	}{
		{"nil", nil, TypeAuto, Null()},
		{"NaN", math.NaN(), TypeInt, Null()},
		{"blank text", "  ", TypeText, Null()},
		{"numeric text as int", "5", TypeInt, Int(5)},
		{"numeric text kept as text", "5", TypeAuto, Text("5")},
		{"float truncated", 12.0, TypeAuto, Int(12)},
		{"float text", "12.9", TypeInt, Int(12)},
		{"int as text", int64(7), TypeText, Text("7")},
		{"json number", json.Number("42"), TypeInt, Int(42)},
		{"bool", true, TypeInt, Int(1)},
		{"text", "MAIN", TypeAuto, Text("MAIN")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.raw, tt.typ); !got.Equal(tt.want) {
				t.Errorf("Of(%v) = %v (%s), want %v (%s)", tt.raw, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestDiffers(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"both null", Null(), Null(), false},
		{"null and NaN", Of(nil, TypeInt), Of(math.NaN(), TypeInt), false},
		{"null and value", Null(), Int(0), true},
		{"value and null", Text("A"), Null(), true},
		{"same int", Int(5), Of("5", TypeInt), false},
		{"text and int", Text("5"), Int(5), true},
		{"different text", Text("A"), Text("B"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Differs(tt.b); got != tt.want {
				t.Errorf("%v.Differs(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Differs(tt.a); got != tt.want {
				t.Errorf("Differs is not symmetric for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestSQLLiteral(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "NULL"},
		{Int(-1), "-1"},
		{Text("MAIN"), "'MAIN'"},
		{Text("O'NEIL"), "'O''NEIL'"},
	}
	for _, tt := range tests {
		if got := tt.v.SQLLiteral(); got != tt.want {
			t.Errorf("SQLLiteral() = %s, want %s", got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	if n, ok := Text(" 900 ").AsInt(); !ok || n != 900 {
		t.Errorf("Text(900).AsInt() = %d, %v", n, ok)
	}
	if _, ok := Text("KING").AsInt(); ok {
		t.Error("text name should not convert")
	}
	if _, ok := Null().AsInt(); ok {
		t.Error("null should not convert")
	}
}

func TestNormalizerStrict(t *testing.T) {
	lenient := &Normalizer{}
	v, err := lenient.Normalize("AFL_VAL", "12A", TypeInt)
	if err != nil || !v.IsNull() || lenient.Coerced != 1 {
		t.Errorf("lenient: %v, %v, coerced %d", v, err, lenient.Coerced)
	}

	strict := &Normalizer{Strict: true}
	_, err = strict.Normalize("AFL_VAL", "12A", TypeInt)
	var ve *ValueError
	if !errors.As(err, &ve) || ve.Field != "AFL_VAL" {
		t.Errorf("strict: error = %v, want ValueError for AFL_VAL", err)
	}
	if _, err := strict.Normalize("AFL_VAL", math.NaN(), TypeInt); err != nil {
		t.Errorf("NaN is a null, got error %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	in := []Value{Null(), Int(42), Text("ST"), Text("")}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[null,42,"ST",""]` {
		t.Errorf("Marshal = %s", data)
	}
	var out []Value
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	for i := range in {
		if !out[i].Equal(in[i]) {
			t.Errorf("value %d = %v (%s), want %v (%s)", i, out[i], out[i].Kind(), in[i], in[i].Kind())
		}
	}
	var v Value
	if err := json.Unmarshal([]byte(`1.5`), &v); err == nil {
		t.Error("expected error for fractional number")
	}
}
