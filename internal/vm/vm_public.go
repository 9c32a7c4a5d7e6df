package vm

import "fmt"

// SetGlobal defines or overwrites a global variable, as `var` would.
func (vm *VM) SetGlobal(name string, value Value) {
	vm.globals[vm.strings.Intern(name)] = value
}

// NewString interns s in this VM, for passing strings in from Go.
func (vm *VM) NewString(s string) Value {
	return ObjVal(vm.strings.Intern(s))
}

// CallFunction calls a Lox callable (closure, bound method or class) from
// Go on an idle VM and returns its result. Runtime errors are reported as
// by Run.
func (vm *VM) CallFunction(callee Value, args ...Value) (result Value, err error) {
	if vm.frameCount != 0 {
		return NilVal(), fmt.Errorf("vm is already running")
	}
	vm.resetStack()

	defer func() {
		if r := recover(); r != nil {
			if r != errStackOverflow {
				panic(r)
			}
			err = vm.runtimeError(errStackOverflow)
		}
	}()

	vm.push(callee)
	for _, arg := range args {
		vm.push(arg)
	}
	if err := vm.callValue(callee, len(args)); err != nil {
		return NilVal(), vm.runtimeError(err)
	}

	// A class without init returns without pushing a frame.
	if vm.frameCount > 0 {
		if err := vm.execute(); err != nil {
			return NilVal(), vm.runtimeError(err)
		}
	}
	result = vm.pop()
	vm.resetStack()
	return result, nil
}
