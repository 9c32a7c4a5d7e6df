package vm

// StringTable interns strings for one VM. The compiler interns every name
// and literal through the same table the VM uses for concatenation, so any
// two strings with equal contents are the same *ObjString.
type StringTable struct {
	strings map[string]*ObjString
}

func NewStringTable() *StringTable {
	return &StringTable{strings: make(map[string]*ObjString)}
}

// Intern returns the shared string object for s, allocating it on first use.
func (t *StringTable) Intern(s string) *ObjString {
	if obj, ok := t.strings[s]; ok {
		return obj
	}
	obj := &ObjString{Chars: s, Hash: hashString(s)}
	t.strings[s] = obj
	return obj
}

// Lookup returns the interned object for s without creating one.
func (t *StringTable) Lookup(s string) (*ObjString, bool) {
	obj, ok := t.strings[s]
	return obj, ok
}

// Len returns the number of interned strings.
func (t *StringTable) Len() int {
	return len(t.strings)
}

// Clear drops every interned string.
func (t *StringTable) Clear() {
	t.strings = make(map[string]*ObjString)
}
