package vm

// binaryOp runs a numeric operator on the top two values. On a type
// mismatch it returns errOperandsNumbers; the operands are already popped
// and the caller abandons the run.
func (vm *VM) binaryOp(op Opcode) error {
	b := vm.pop()
	a := vm.pop()
	if !a.IsNumber() || !b.IsNumber() {
		return errOperandsNumbers
	}

	x, y := a.AsNumber(), b.AsNumber()
	switch op {
	case OP_GREATER:
		vm.push(BoolVal(x > y))
	case OP_LESS:
		vm.push(BoolVal(x < y))
	case OP_SUBTRACT:
		vm.push(NumberVal(x - y))
	case OP_MULTIPLY:
		vm.push(NumberVal(x * y))
	case OP_DIVIDE:
		vm.push(NumberVal(x / y))
	}
	return nil
}

// add is `+`: numeric addition, or concatenation when both operands are
// strings.
func (vm *VM) add() error {
	b := vm.pop()
	a := vm.pop()

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.push(ObjVal(vm.concatenate(a.AsString(), b.AsString())))
	default:
		return errOperandsAddable
	}
	return nil
}

// concatenate interns the result, so equal concatenations share one object.
func (vm *VM) concatenate(a, b *ObjString) *ObjString {
	return vm.strings.Intern(a.Chars + b.Chars)
}

func (vm *VM) negate() error {
	if !vm.peek(0).IsNumber() {
		return errOperandNumber
	}
	v := vm.pop()
	vm.push(NumberVal(-v.AsNumber()))
	return nil
}

// getProperty replaces the instance on top of the stack with its field.
func (vm *VM) getProperty(name *ObjString) error {
	instance := vm.peek(0).AsInstance()
	if instance == nil {
		return errPropertyNonObject
	}

	value, ok := instance.Fields[name]
	if !ok {
		return runtimeErrorf("Undefined property '%s'", name.Chars)
	}
	vm.pop()
	vm.push(value)
	return nil
}

// setProperty stores the top value into the instance below it and leaves
// the value as the result of the assignment.
func (vm *VM) setProperty(name *ObjString) error {
	instance := vm.peek(1).AsInstance()
	if instance == nil {
		return errFieldOnNonInstance
	}

	instance.Fields[name] = vm.peek(0)
	value := vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// defineMethod pops a method closure into the class just below it.
func (vm *VM) defineMethod(name *ObjString) {
	method := vm.peek(0).Obj.(*ObjClosure)
	class := vm.peek(1).Obj.(*ObjClass)
	class.addMethod(name, method)
	vm.pop()
}
