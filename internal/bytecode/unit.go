package bytecode

// Unit is the compiled form of one module
type Unit struct {
	Name    string
	Fields  []*Field
	Methods []*Method
}

// Field is a static field of a unit
type Field struct {
	Public bool
	Name   string
	Desc   string
}

// Method is a static method of a unit. Parameters occupy local slots
// 0..len(params)-1; MaxLocals counts every slot the code touches.
type Method struct {
	Public    bool
	Name      string
	Desc      string
	Code      []Instruction
	MaxLocals int
	MaxStack  int
}

// Field returns the field with the given name, or nil
func (u *Unit) Field(name string) *Field {
	for _, f := range u.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Method returns the method with the given name, or nil
func (u *Unit) Method(name string) *Method {
	for _, m := range u.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Signature returns the parameter and return descriptors of the method
func (m *Method) Signature() ([]string, string, error) {
	return ParseMethodDesc(m.Desc)
}
