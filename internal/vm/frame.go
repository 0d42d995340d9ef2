package vm

import "poise/internal/value"

// localIndex returns the position in the flat locals vector of index i
// relative to frame's localBase.
func (vm *VM) localIndex(frame *Frame, i int) int {
	idx := frame.localBase + i
	if idx < 0 || idx >= len(vm.locals) {
		vm.fatalf("local index %d out of range (base %d, len %d)", i, frame.localBase, len(vm.locals))
	}
	return idx
}

func (vm *VM) loadLocal(frame *Frame, i int) value.Value {
	return vm.locals[vm.localIndex(frame, i)]
}

func (vm *VM) assignLocal(frame *Frame, i int, v value.Value) {
	idx := vm.localIndex(frame, i)
	vm.locals[idx].Release()
	vm.locals[idx] = v
}

// declareLocal appends v (popped off the data stack by the caller) as the
// next local in frame.
func (vm *VM) declareLocal(frame *Frame, v value.Value) {
	_ = frame
	vm.locals = append(vm.locals, v)
}

// popLocalsTo truncates the locals vector back to frame.localBase+scopeStart,
// releasing everything trimmed off. scopeStart is the local-vector length
// (relative to frame.localBase) PopLocals' operand encodes.
func (vm *VM) popLocalsTo(frame *Frame, scopeStart int) {
	target := frame.localBase + scopeStart
	if target > len(vm.locals) {
		vm.fatalf("PopLocals target %d exceeds locals length %d", target, len(vm.locals))
	}
	for i := target; i < len(vm.locals); i++ {
		vm.locals[i].Release()
	}
	vm.locals = vm.locals[:target]
}

// declareMultipleLocals declares `count` new locals from the values Unpack
// just pushed onto the data stack, in the order they were pushed.
func (vm *VM) declareMultipleLocals(frame *Frame, count int) {
	values := vm.popN(count)
	for _, v := range values {
		vm.declareLocal(frame, v)
	}
}
