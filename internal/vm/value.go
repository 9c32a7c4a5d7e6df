package vm

import (
	"math"
	"strconv"
	"strings"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValBool ValueType = iota
	ValNil
	ValNumber
	ValObj // Heap object (string, function, closure, class, instance...)
)

func (t ValueType) String() string {
	switch t {
	case ValBool:
		return "bool"
	case ValNil:
		return "nil"
	case ValNumber:
		return "number"
	case ValObj:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a stack-allocated tagged union.
// Booleans and numbers live in Data; only ValObj carries a pointer.
type Value struct {
	Type ValueType
	Data uint64 // float64 bits or bool (0/1)
	Obj  Object
}

// Constructors

func NilVal() Value {
	return Value{Type: ValNil}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBool, Data: data}
}

func ObjVal(o Object) Value {
	return Value{Type: ValObj, Obj: o}
}

// Accessors

func (v Value) AsNumber() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsBool() bool {
	return v.Data == 1
}

// AsString returns the string object, or nil when v is not a string.
func (v Value) AsString() *ObjString {
	if v.Type != ValObj {
		return nil
	}
	s, _ := v.Obj.(*ObjString)
	return s
}

// AsInstance returns the instance object, or nil when v is not an instance.
func (v Value) AsInstance() *ObjInstance {
	if v.Type != ValObj {
		return nil
	}
	inst, _ := v.Obj.(*ObjInstance)
	return inst
}

// Type checking helpers

func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsObj() bool    { return v.Type == ValObj }
func (v Value) IsString() bool { return v.AsString() != nil }

// IsFalsey reports whether v counts as false in a condition. Only nil and
// false do; 0 and "" are truthy.
func (v Value) IsFalsey() bool {
	return v.Type == ValNil || (v.Type == ValBool && !v.AsBool())
}

// Equals compares two values. Tags must match; numbers use IEEE equality so
// NaN never equals itself, and objects compare by identity. Strings are
// interned, which makes identity the same as content equality for them.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValBool:
		return v.Data == other.Data
	case ValNil:
		return true
	case ValNumber:
		return v.AsNumber() == other.AsNumber()
	case ValObj:
		return v.Obj == other.Obj
	default:
		return false
	}
}

// String formats the value the way `print` shows it.
func (v Value) String() string {
	switch v.Type {
	case ValBool:
		return strconv.FormatBool(v.AsBool())
	case ValNil:
		return "nil"
	case ValNumber:
		return formatNumber(v.AsNumber())
	case ValObj:
		if v.Obj != nil {
			return v.Obj.String()
		}
		return "<nil obj>"
	default:
		return "<?>"
	}
}

// formatNumber prints the shortest representation that round-trips, in
// plain decimal between 1e-6 and 1e21 and in exponent form outside it. The
// sign of negative zero is kept.
func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	abs := math.Abs(n)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	// 1e-07 -> 1e-7
	s := strconv.FormatFloat(n, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + digits
}
