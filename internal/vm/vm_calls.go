package vm

// callValue calls the callee sitting below argCount arguments on the stack.
// Arguments stay in place and become the callee's parameter slots.
func (vm *VM) callValue(callee Value, argCount int) error {
	if !callee.IsObj() {
		return errNotCallable
	}

	switch obj := callee.Obj.(type) {
	case *ObjClosure:
		return vm.call(obj, argCount)

	case *ObjBoundMethod:
		vm.stack[vm.sp-argCount-1] = obj.Receiver
		return vm.call(obj.Method, argCount)

	case *ObjClass:
		// The new instance takes the class's slot, where init finds it as
		// `this` and returns it.
		vm.stack[vm.sp-argCount-1] = ObjVal(newInstance(obj))
		if obj.Init != nil {
			return vm.call(obj.Init, argCount)
		}
		if argCount != 0 {
			return runtimeErrorf("Expected 0 arguments but got %d", argCount)
		}
		return nil

	default:
		return errNotCallable
	}
}

// call pushes a frame for closure whose slot 0 is the callee slot.
func (vm *VM) call(closure *ObjClosure, argCount int) error {
	fn := closure.Function
	if argCount != fn.Arity {
		return runtimeErrorf("Expected %d arguments but got %d", fn.Arity, argCount)
	}

	if vm.frameCount == len(vm.frames) {
		return errStackOverflow
	}

	vm.frames[vm.frameCount] = CallFrame{
		closure: closure,
		chunk:   fn.Chunk,
		ip:      0,
		base:    vm.sp - argCount - 1,
	}
	vm.frame = &vm.frames[vm.frameCount]
	vm.frameCount++
	return nil
}
