package vm

import (
	"fmt"
	"hash/fnv"
)

// ObjectType names the heap object variants.
type ObjectType string

const (
	STRING_OBJ   ObjectType = "STRING"
	FUNCTION_OBJ ObjectType = "FUNCTION"
	CLOSURE_OBJ  ObjectType = "CLOSURE"
	UPVALUE_OBJ  ObjectType = "UPVALUE"
	CLASS_OBJ    ObjectType = "CLASS"
	INSTANCE_OBJ ObjectType = "INSTANCE"

	BOUND_METHOD_OBJ ObjectType = "BOUND_METHOD"
)

// initializerName is the method run when a class is called.
const initializerName = "init"

// Object is implemented by every heap-allocated value.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjString is an immutable, interned string. Create them only through
// StringTable.Intern so that equal contents share one pointer.
type ObjString struct {
	Chars string
	Hash  uint32
}

func (s *ObjString) Type() ObjectType { return STRING_OBJ }
func (s *ObjString) String() string   { return s.Chars }

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// ObjFunction is a compiled function body. A nil Name marks the implicit
// top-level script.
type ObjFunction struct {
	Arity        int    // Number of declared parameters
	UpvalueCount int    // Number of variables the body closes over
	Chunk        *Chunk // Bytecode, owned exclusively by this function
	Name         *ObjString
}

func newFunction() *ObjFunction {
	return &ObjFunction{Chunk: NewChunk()}
}

func (f *ObjFunction) Type() ObjectType { return FUNCTION_OBJ }

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// DisplayName is the name used in stack traces.
func (f *ObjFunction) DisplayName() string {
	if f.Name == nil {
		return ""
	}
	return f.Name.Chars
}

// ObjClosure wraps an ObjFunction with its captured upvalues
type ObjClosure struct {
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func newClosure(fn *ObjFunction) *ObjClosure {
	return &ObjClosure{
		Function: fn,
		Upvalues: make([]*ObjUpvalue, fn.UpvalueCount),
	}
}

func (c *ObjClosure) Type() ObjectType { return CLOSURE_OBJ }
func (c *ObjClosure) String() string   { return c.Function.String() }

// ObjUpvalue represents a captured variable from an enclosing scope.
// While open, Location points at the live stack slot Slot; closing copies
// the value into Closed and points Location at it, so reads and writes go
// through Location either way.
type ObjUpvalue struct {
	Slot     int
	Location *Value
	Closed   Value
}

func (u *ObjUpvalue) Type() ObjectType { return UPVALUE_OBJ }
func (u *ObjUpvalue) String() string   { return "upvalue" }

// IsOpen reports whether the upvalue still aliases a stack slot.
func (u *ObjUpvalue) IsOpen() bool {
	return u.Location != &u.Closed
}

func (u *ObjUpvalue) close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// ClassMethod is a method declared in a class body.
type ClassMethod struct {
	Name    *ObjString
	Closure *ObjClosure
}

// ObjClass is a user-defined class. Methods are not looked up through the
// class at call time; each new instance gets them, bound to itself, as
// ordinary fields.
type ObjClass struct {
	Name    *ObjString
	Methods []ClassMethod
	Init    *ObjClosure // the `init` method, if declared
}

func newClass(name *ObjString) *ObjClass {
	return &ObjClass{Name: name}
}

func (c *ObjClass) Type() ObjectType { return CLASS_OBJ }
func (c *ObjClass) String() string   { return c.Name.Chars }

// addMethod records a method; a later declaration with the same name wins.
func (c *ObjClass) addMethod(name *ObjString, closure *ObjClosure) {
	if name.Chars == initializerName {
		c.Init = closure
	}
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			c.Methods[i].Closure = closure
			return
		}
	}
	c.Methods = append(c.Methods, ClassMethod{Name: name, Closure: closure})
}

// ObjInstance is an object created by calling a class.
type ObjInstance struct {
	Class  *ObjClass
	Fields map[*ObjString]Value
}

func newInstance(class *ObjClass) *ObjInstance {
	inst := &ObjInstance{
		Class:  class,
		Fields: make(map[*ObjString]Value, len(class.Methods)),
	}
	for _, m := range class.Methods {
		inst.Fields[m.Name] = ObjVal(newBoundMethod(ObjVal(inst), m.Closure))
	}
	return inst
}

func (i *ObjInstance) Type() ObjectType { return INSTANCE_OBJ }
func (i *ObjInstance) String() string   { return i.Class.Name.Chars + " instance" }

// ObjBoundMethod pairs a method with the instance it was read from, so a
// call puts the receiver in slot 0 where `this` lives.
type ObjBoundMethod struct {
	Receiver Value
	Method   *ObjClosure
}

func newBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	return &ObjBoundMethod{Receiver: receiver, Method: method}
}

func (b *ObjBoundMethod) Type() ObjectType { return BOUND_METHOD_OBJ }
func (b *ObjBoundMethod) String() string   { return b.Method.String() }
