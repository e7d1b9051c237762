package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind tags the variants a raw provider payload can take.
type Kind int

const (
	// KindNull marks an absent or JSON-null value.
	KindNull Kind = iota
	// KindString marks a text value.
	KindString
	// KindNumber marks a numeric value.
	KindNumber
	// KindBool marks a boolean value.
	KindBool
	// KindMapping marks a JSON object.
	KindMapping
	// KindSequence marks a JSON array.
	KindSequence
)

// Value is an explicit tagged union over provider-shaped payloads. Trackers
// disagree on structure and individual fields may be null, missing, or of an
// unexpected type; every accessor on Value is total and degrades to the null
// variant instead of failing.
type Value struct {
	kind     Kind
	str      string
	num      float64
	boolean  bool
	mapping  map[string]Value
	sequence []Value
}

// Null is the absent value.
var Null = Value{}

// Decode parses a stored JSON document into a Value. Malformed or empty
// input yields the null value.
func Decode(raw []byte) Value {
	if len(raw) == 0 {
		return Null
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Null
	}
	return fromAny(decoded)
}

// DecodeString parses a stored JSON string column into a Value.
func DecodeString(raw string) Value {
	if strings.TrimSpace(raw) == "" {
		return Null
	}
	return Decode([]byte(raw))
}

func fromAny(decoded any) Value {
	switch typed := decoded.(type) {
	case nil:
		return Null
	case string:
		return Value{kind: KindString, str: typed}
	case float64:
		return Value{kind: KindNumber, num: typed}
	case bool:
		return Value{kind: KindBool, boolean: typed}
	case map[string]any:
		mapping := make(map[string]Value, len(typed))
		for key, entry := range typed {
			mapping[key] = fromAny(entry)
		}
		return Value{kind: KindMapping, mapping: mapping}
	case []any:
		sequence := make([]Value, 0, len(typed))
		for _, entry := range typed {
			sequence = append(sequence, fromAny(entry))
		}
		return Value{kind: KindSequence, sequence: sequence}
	default:
		return Null
	}
}

// Kind reports the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Field returns the named entry of a mapping value, or null for any other
// variant or a missing key.
func (v Value) Field(name string) Value {
	if v.kind != KindMapping {
		return Null
	}
	entry, ok := v.mapping[name]
	if !ok {
		return Null
	}
	return entry
}

// At returns the indexed entry of a sequence value, or null when out of
// range or not a sequence.
func (v Value) At(index int) Value {
	if v.kind != KindSequence || index < 0 || index >= len(v.sequence) {
		return Null
	}
	return v.sequence[index]
}

// Len reports the entry count for mapping and sequence values, zero
// otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindMapping:
		return len(v.mapping)
	case KindSequence:
		return len(v.sequence)
	default:
		return 0
	}
}

// Entries returns the elements of a sequence value.
func (v Value) Entries() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.sequence
}

// Text stringifies the value: strings pass through, scalars format
// canonically, structured values re-encode as compact JSON, null is the
// empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindMapping, KindSequence:
		encoded, err := json.Marshal(v.toAny())
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return ""
	}
}

func (v Value) toAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.boolean
	case KindMapping:
		mapping := make(map[string]any, len(v.mapping))
		for key, entry := range v.mapping {
			mapping[key] = entry.toAny()
		}
		return mapping
	case KindSequence:
		sequence := make([]any, 0, len(v.sequence))
		for _, entry := range v.sequence {
			sequence = append(sequence, entry.toAny())
		}
		return sequence
	default:
		return nil
	}
}

// Lookup evaluates a field path against the value, returning null when any
// step is missing or the shapes disagree.
func (v Value) Lookup(path ...string) Value {
	current := v
	for _, step := range path {
		current = current.Field(step)
		if current.IsNull() {
			return Null
		}
	}
	return current
}
