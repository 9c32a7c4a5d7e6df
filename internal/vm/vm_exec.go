package vm

import "fmt"

// step executes one instruction. done is true once the top-level function
// has returned.
func (vm *VM) step() (done bool, err error) {
	if vm.traceExecution {
		vm.traceInstruction()
	}

	op := Opcode(vm.readByte())

	switch op {
	case OP_CONSTANT:
		vm.push(vm.readConstant())
	case OP_NIL:
		vm.push(NilVal())
	case OP_TRUE:
		vm.push(BoolVal(true))
	case OP_FALSE:
		vm.push(BoolVal(false))
	case OP_POP:
		vm.pop()

	case OP_GET_LOCAL:
		slot := int(vm.readByte())
		vm.push(vm.stack[vm.frame.base+slot])
	case OP_SET_LOCAL:
		slot := int(vm.readByte())
		vm.stack[vm.frame.base+slot] = vm.peek(0)

	case OP_GET_GLOBAL:
		name := vm.readString()
		value, ok := vm.globals[name]
		if !ok {
			return false, runtimeErrorf("Undefined variable '%s'", name.Chars)
		}
		vm.push(value)
	case OP_DEFINE_GLOBAL:
		name := vm.readString()
		vm.globals[name] = vm.peek(0)
		vm.pop()
	case OP_SET_GLOBAL:
		// Assignment never creates a global.
		name := vm.readString()
		if _, ok := vm.globals[name]; !ok {
			return false, runtimeErrorf("Undefined variable '%s'", name.Chars)
		}
		vm.globals[name] = vm.peek(0)

	case OP_GET_UPVALUE:
		slot := vm.readByte()
		vm.push(*vm.frame.closure.Upvalues[slot].Location)
	case OP_SET_UPVALUE:
		slot := vm.readByte()
		*vm.frame.closure.Upvalues[slot].Location = vm.peek(0)

	case OP_GET_PROPERTY:
		return false, vm.getProperty(vm.readString())
	case OP_SET_PROPERTY:
		return false, vm.setProperty(vm.readString())

	case OP_EQUAL:
		b := vm.pop()
		a := vm.pop()
		vm.push(BoolVal(a.Equals(b)))
	case OP_GREATER, OP_LESS, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
		return false, vm.binaryOp(op)
	case OP_ADD:
		return false, vm.add()
	case OP_NOT:
		vm.push(BoolVal(vm.pop().IsFalsey()))
	case OP_NEGATE:
		return false, vm.negate()

	case OP_PRINT:
		fmt.Fprintln(vm.out, vm.pop().String())

	case OP_JUMP:
		offset := vm.readShort()
		vm.frame.ip += offset
	case OP_JUMP_IF_FALSE:
		offset := vm.readShort()
		if vm.peek(0).IsFalsey() {
			vm.frame.ip += offset
		}
	case OP_LOOP:
		offset := vm.readShort()
		vm.frame.ip -= offset

	case OP_CALL:
		argCount := int(vm.readByte())
		return false, vm.callValue(vm.peek(argCount), argCount)
	case OP_CLOSURE:
		vm.makeClosure()
	case OP_CLOSE_UPVALUE:
		vm.closeUpvalues(vm.sp - 1)
		vm.pop()
	case OP_RETURN:
		return vm.doReturn(), nil

	case OP_CLASS:
		vm.push(ObjVal(newClass(vm.readString())))
	case OP_METHOD:
		vm.defineMethod(vm.readString())

	default:
		return false, fmt.Errorf("unknown opcode %d", op)
	}

	return false, nil
}

// makeClosure wraps the function constant in a closure, binding each
// upvalue to a local of the current frame or to one of its own upvalues.
func (vm *VM) makeClosure() {
	fn := vm.readConstant().Obj.(*ObjFunction)
	closure := newClosure(fn)
	vm.push(ObjVal(closure))

	for i := range closure.Upvalues {
		isLocal := vm.readByte()
		index := int(vm.readByte())
		if isLocal == 1 {
			closure.Upvalues[i] = vm.captureUpvalue(vm.frame.base + index)
		} else {
			closure.Upvalues[i] = vm.frame.closure.Upvalues[index]
		}
	}
}

// doReturn pops the current frame, closing its captured slots, and leaves
// the result in place of the callee. It reports whether no frames remain.
func (vm *VM) doReturn() bool {
	result := vm.pop()
	frame := vm.frame

	vm.closeUpvalues(frame.base)
	vm.frameCount--
	vm.sp = frame.base
	vm.push(result)

	if vm.frameCount == 0 {
		vm.frame = nil
		return true
	}
	vm.frame = &vm.frames[vm.frameCount-1]
	return false
}
