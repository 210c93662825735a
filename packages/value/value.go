package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable JSON-shaped value. The zero Value is null.
//
// A number decoded from JSON or built from an integer keeps its literal in
// lit, so integers beyond 2^53 survive a round trip and compare exactly.
type Value struct {
	kind Kind
	b    bool
	n    float64
	lit  string
	s    string
	arr  []Value
	obj  map[string]Value
}

func NullValue() Value { return Value{} }

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

func NumberValue(n float64) Value { return Value{kind: Number, n: n} }

// IntValue returns an integer number that renders and compares exactly.
func IntValue(i int64) Value {
	return Value{kind: Number, n: float64(i), lit: strconv.FormatInt(i, 10)}
}

// numberLiteral builds a number from a JSON number literal.
func numberLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return Value{}, fmt.Errorf("invalid number %q: %w", lit, err)
		}
	}
	return Value{kind: Number, n: f, lit: lit}, nil
}

func StringValue(s string) Value { return Value{kind: String, s: s} }

func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

func ObjectValue(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: Object, obj: fields}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.kind == Bool && v.b }

// Number returns the numeric payload; 0 for other kinds.
func (v Value) Number() float64 {
	if v.kind != Number {
		return 0
	}
	return v.n
}

// Literal returns the exact number literal when one is known.
func (v Value) Literal() (string, bool) {
	if v.kind != Number || v.lit == "" {
		return "", false
	}
	return v.lit, true
}

// bigInt returns the exact integer a number holds, if its literal is one.
func (v Value) bigInt() (*big.Int, bool) {
	if v.lit == "" {
		return nil, false
	}
	return new(big.Int).SetString(v.lit, 10)
}

// Str returns the string payload; "" for other kinds.
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return v.s
}

func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.arr
}

func (v Value) Fields() map[string]Value {
	if v.kind != Object {
		return nil
	}
	return v.obj
}

// Len returns the number of items, fields, or bytes; 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	case String:
		return len(v.s)
	default:
		return 0
	}
}

func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}
	return v.arr[i], true
}

// Keys returns object keys in sorted order so that walks are deterministic.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality. Numbers compare by value; two integer
// literals compare digit for digit.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Number:
		if a, ok := v.bigInt(); ok {
			if b, ok := o.bigInt(); ok {
				return a.Cmp(b) == 0
			}
		}
		return v.n == o.n
	case String:
		return v.s == o.s
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, f := range v.obj {
			of, ok := o.obj[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	}
	return false
}

// MapStrings returns a copy of v with fn applied to every string leaf.
// Object keys are left untouched.
func (v Value) MapStrings(fn func(string) (string, error)) (Value, error) {
	return v.MapLeaves(func(s string) (Value, error) {
		mapped, err := fn(s)
		if err != nil {
			return Value{}, err
		}
		return StringValue(mapped), nil
	})
}

// MapLeaves is MapStrings where fn may replace a string leaf with a value of
// any kind.
func (v Value) MapLeaves(fn func(string) (Value, error)) (Value, error) {
	switch v.kind {
	case String:
		return fn(v.s)
	case Array:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			mapped, err := item.MapLeaves(fn)
			if err != nil {
				return Value{}, err
			}
			items[i] = mapped
		}
		return ArrayValue(items...), nil
	case Object:
		fields := make(map[string]Value, len(v.obj))
		for _, k := range v.Keys() {
			mapped, err := v.obj[k].MapLeaves(fn)
			if err != nil {
				return Value{}, err
			}
			fields[k] = mapped
		}
		return ObjectValue(fields), nil
	default:
		return v, nil
	}
}

// Text renders v the way it is spliced into a string: strings verbatim,
// numbers without a trailing ".0", composites as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		if v.lit != "" {
			return v.lit
		}
		return formatNumber(v.n)
	case String:
		return v.s
	default:
		return v.String()
	}
}

// String returns the compact JSON encoding.
func (v Value) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(data)
}

// ToAny converts v into plain Go values (map[string]any, []any, float64, ...).
// Numbers with a known literal become json.Number.
func (v Value) ToAny() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		if v.lit != "" {
			return json.Number(v.lit)
		}
		if v.n == math.Trunc(v.n) && math.Abs(v.n) < 1<<53 {
			return int64(v.n)
		}
		return v.n
	case String:
		return v.s
	case Array:
		items := make([]any, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.ToAny()
		}
		return items
	case Object:
		fields := make(map[string]any, len(v.obj))
		for k, f := range v.obj {
			fields[k] = f.ToAny()
		}
		return fields
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	converted, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = converted
	return nil
}

// Parse decodes a JSON document.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decoding JSON: %w", err)
	}
	return FromAny(raw)
}

// FromAny converts decoded YAML/JSON data into a Value.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	case json.Number:
		return numberLiteral(string(x))
	case float64:
		return NumberValue(x), nil
	case float32:
		return NumberValue(float64(x)), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case int32:
		return IntValue(int64(x)), nil
	case uint:
		return numberLiteral(strconv.FormatUint(uint64(x), 10))
	case uint64:
		return numberLiteral(strconv.FormatUint(x, 10))
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = converted
		}
		return ArrayValue(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = converted
		}
		return ObjectValue(fields), nil
	case map[any]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%v: %w", k, err)
			}
			fields[fmt.Sprintf("%v", k)] = converted
		}
		return ObjectValue(fields), nil
	case map[string]string:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			fields[k] = StringValue(item)
		}
		return ObjectValue(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// MustFrom is FromAny for literals known to be convertible; it panics otherwise.
func MustFrom(raw any) Value {
	v, err := FromAny(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
