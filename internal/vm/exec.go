package vm

import (
	"fmt"

	"poise/internal/bytecode"
	"poise/internal/objects"
	"poise/internal/value"
)

// step executes exactly one instruction against frame, returning the
// Exception it raised, if any. A non-nil return never means "fatal" — that
// case panics with fatal directly (see vm.fatalf) — it means the op ran to
// completion but produced a value the language can catch.
func (vm *VM) step(frame *Frame, op bytecode.Op, line int) *objects.Exception {
	switch op {
	case bytecode.OpLoadConstant:
		vm.push(vm.nextConstant(frame).Clone())

	case bytecode.OpLoadLocal:
		idx := int(vm.nextConstant(frame).Int())
		vm.push(vm.loadLocal(frame, idx).Clone())

	case bytecode.OpAssignLocal:
		idx := int(vm.nextConstant(frame).Int())
		v := vm.pop()
		vm.assignLocal(frame, idx, v)
		vm.push(value.None())

	case bytecode.OpDeclareLocal:
		vm.declareLocal(frame, vm.pop())

	case bytecode.OpDeclareMultipleLocals:
		count := int(vm.nextConstant(frame).Int())
		vm.declareMultipleLocals(frame, count)

	case bytecode.OpPopLocals:
		scopeStart := int(vm.nextConstant(frame).Int())
		vm.popLocalsTo(frame, scopeStart)

	case bytecode.OpPop:
		vm.pop().Release()

	case bytecode.OpLoadFunctionOrStruct:
		nsHash := uint64(vm.nextConstant(frame).Int())
		nameHash := uint64(vm.nextConstant(frame).Int())
		return vm.opLoadFunctionOrStruct(nsHash, nameHash)

	case bytecode.OpLoadMember:
		nameHash := uint64(vm.nextConstant(frame).Int())
		return vm.opLoadMember(nameHash)

	case bytecode.OpLoadType:
		tag := value.TypeTag(vm.nextConstant(frame).Int())
		vm.push(vm.types.Get(tag).Clone())

	case bytecode.OpConstructBuiltin:
		return vm.opConstructBuiltin(frame)

	case bytecode.OpMakeLambda:
		c := vm.nextConstant(frame)
		tmpl, ok := c.Object().(*objects.Function)
		if !ok {
			vm.fatalf("MakeLambda constant is not a Function template")
		}
		vm.opMakeLambda(tmpl)

	case bytecode.OpCaptureLocal:
		idx := int(vm.nextConstant(frame).Int())
		vm.opCaptureLocal(frame, idx)

	case bytecode.OpLoadCapture:
		idx := int(vm.nextConstant(frame).Int())
		vm.opLoadCapture(frame, idx)

	case bytecode.OpLoadIndex:
		return vm.opLoadIndex()

	case bytecode.OpAssignIndex:
		return vm.opAssignIndex()

	case bytecode.OpCall:
		argCount := int(vm.nextConstant(frame).Int())
		hasUnpack := vm.nextConstant(frame).Bool()
		isDotCall := vm.nextConstant(frame).Bool()
		return vm.opCall(argCount, hasUnpack, isDotCall)

	case bytecode.OpCallNative:
		hash := uint64(vm.nextConstant(frame).Int())
		return vm.opCallNative(hash)

	case bytecode.OpInitIterator:
		firstIdx := int(vm.nextConstant(frame).Int())
		secondIdx := int(vm.nextConstant(frame).Int())
		return vm.opInitIterator(frame, firstIdx, secondIdx)

	case bytecode.OpIncrementIterator:
		firstIdx := int(vm.nextConstant(frame).Int())
		secondIdx := int(vm.nextConstant(frame).Int())
		return vm.opIncrementIterator(frame, firstIdx, secondIdx)

	case bytecode.OpPopIterator:
		vm.opPopIterator()

	case bytecode.OpUnpack:
		return vm.opUnpack()

	case bytecode.OpEnterTry:
		catchConstIdx := int(vm.nextConstant(frame).Int())
		catchOpIdx := int(vm.nextConstant(frame).Int())
		vm.tryStack = append(vm.tryStack, tryFrame{
			frameDepth:      len(vm.frames),
			localsDepth:     len(vm.locals),
			dataDepth:       len(vm.data),
			iterDepth:       len(vm.iterStack),
			catchConstIndex: catchConstIdx,
			catchOpIndex:    catchOpIdx,
		})

	case bytecode.OpExitTry:
		if len(vm.tryStack) == 0 {
			vm.fatalf("ExitTry with no active try handler")
		}
		vm.tryStack = vm.tryStack[:len(vm.tryStack)-1]

	case bytecode.OpThrow:
		return vm.opThrow()

	case bytecode.OpJump:
		constIdx := int(vm.nextConstant(frame).Int())
		opIdx := int(vm.nextConstant(frame).Int())
		frame.constIndex, frame.opIndex = constIdx, opIdx

	case bytecode.OpJumpIfFalse:
		constIdx := int(vm.nextConstant(frame).Int())
		opIdx := int(vm.nextConstant(frame).Int())
		if !vm.peek().ToBool() {
			frame.constIndex, frame.opIndex = constIdx, opIdx
		}

	case bytecode.OpJumpIfTrue:
		constIdx := int(vm.nextConstant(frame).Int())
		opIdx := int(vm.nextConstant(frame).Int())
		if vm.peek().ToBool() {
			frame.constIndex, frame.opIndex = constIdx, opIdx
		}

	case bytecode.OpReturn:
		vm.opReturn()

	case bytecode.OpPrint:
		errStream := vm.nextConstant(frame).Bool()
		newline := vm.nextConstant(frame).Bool()
		vm.opPrint(errStream, newline)

	case bytecode.OpAssert:
		v := vm.pop()
		ok := v.ToBool()
		v.Release()
		if !ok {
			return objects.NewException(objects.ExcAssertionFailed, "assertion failed")
		}

	case bytecode.OpTypeOf:
		v := vm.pop()
		t := objects.TypeOf(vm.types, v).Clone()
		v.Release()
		vm.push(t)

	case bytecode.OpLogicOr, bytecode.OpLogicAnd, bytecode.OpBitwiseOr, bytecode.OpBitwiseXor,
		bytecode.OpBitwiseAnd, bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpLessThan,
		bytecode.OpLessEqual, bytecode.OpGreaterThan, bytecode.OpGreaterEqual, bytecode.OpLeftShift,
		bytecode.OpRightShift, bytecode.OpAddition, bytecode.OpSubtraction, bytecode.OpMultiply,
		bytecode.OpDivide, bytecode.OpModulus:
		return vm.binaryOp(op)

	case bytecode.OpLogicNot, bytecode.OpBitwiseNot, bytecode.OpNegate, bytecode.OpPlus:
		return vm.unaryOp(op)

	default:
		vm.fatalf("unhandled op %s at line %d", op, line)
	}
	return nil
}

// unwind pops the innermost try handler, if any, rolling every VM stack back
// to the depth it was at when that handler's EnterTry ran, then binds excVal
// at the handler's catch target. Returns false if no handler is active, in
// which case the caller treats this as an unhandled exception.
func (vm *VM) unwind(excVal value.Value) bool {
	if len(vm.tryStack) == 0 {
		return false
	}
	handler := vm.tryStack[len(vm.tryStack)-1]
	vm.tryStack = vm.tryStack[:len(vm.tryStack)-1]

	vm.frames = vm.frames[:handler.frameDepth]
	vm.closeItersTo(handler.iterDepth)

	for i := handler.localsDepth; i < len(vm.locals); i++ {
		vm.locals[i].Release()
	}
	vm.locals = vm.locals[:handler.localsDepth]

	for i := handler.dataDepth; i < len(vm.data); i++ {
		vm.data[i].Release()
	}
	vm.data = vm.data[:handler.dataDepth]

	vm.push(excVal)

	frame := vm.frames[len(vm.frames)-1]
	frame.constIndex, frame.opIndex = handler.catchConstIndex, handler.catchOpIndex
	return true
}

// opThrow pops the thrown value, wrapping it in a generic Exception unless
// it already is one.
func (vm *VM) opThrow() *objects.Exception {
	v := vm.pop()
	if exc, ok := v.Object().(*objects.Exception); ok {
		v.Release()
		return exc
	}
	msg := v.String()
	v.Release()
	return objects.NewException(objects.ExcException, msg)
}

func (vm *VM) opPrint(errStream, newline bool) {
	v := vm.pop()
	w := vm.Stdout
	if errStream {
		w = vm.Stderr
	}
	if newline {
		fmt.Fprintln(w, v.String())
	} else {
		fmt.Fprint(w, v.String())
	}
	v.Release()
}

// opConstructBuiltin reads (tag, argCount, hasUnpack) and, for Range, a
// fourth inclusive flag, resolves the arguments, and builds the value.
func (vm *VM) opConstructBuiltin(frame *Frame) *objects.Exception {
	tag := value.TypeTag(vm.nextConstant(frame).Int())
	argCount := int(vm.nextConstant(frame).Int())
	hasUnpack := vm.nextConstant(frame).Bool()

	if tag == value.TypeRange {
		inclusive := vm.nextConstant(frame).Bool()
		args, exc := vm.resolveArgs(argCount, hasUnpack)
		if exc != nil {
			return exc
		}
		result, exc := vm.buildRange(args, inclusive)
		if exc != nil {
			return exc
		}
		vm.push(result)
		return nil
	}

	args, exc := vm.resolveArgs(argCount, hasUnpack)
	if exc != nil {
		return exc
	}
	t := vm.types.TypeObject(tag)
	if t == nil || t.Construct == nil {
		releaseAll(args)
		return objects.NewException(objects.ExcTypeNotFound, "type is not constructible")
	}
	result, exc := t.Construct(args)
	if exc != nil {
		return exc
	}
	vm.push(result)
	return nil
}

func (vm *VM) opLoadIndex() *objects.Exception {
	idx := vm.pop()
	container := vm.pop()
	result, exc := indexInto(container, idx)
	container.Release()
	idx.Release()
	if exc != nil {
		return exc
	}
	vm.push(result)
	return nil
}

func indexInto(container, idx value.Value) (value.Value, *objects.Exception) {
	if container.Tag() == value.TagString {
		if idx.Tag() != value.TagInt {
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "string index must be Int")
		}
		s := container.Str()
		i := int(idx.Int())
		if i < 0 || i >= len(s) {
			return value.None(), objects.NewException(objects.ExcIndexOutOfBounds, "string index out of bounds")
		}
		return value.String(string(s[i])), nil
	}
	obj := container.Object()
	if obj == nil {
		return value.None(), objects.NewException(objects.ExcInvalidOperand, "value does not support indexing")
	}
	if l, ok := objects.AsList(obj); ok {
		if idx.Tag() != value.TagInt {
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "list index must be Int")
		}
		v, exc := l.At(int(idx.Int()))
		if exc != nil {
			return value.None(), exc
		}
		return v.Clone(), nil
	}
	if t, ok := objects.AsTuple(obj); ok {
		if idx.Tag() != value.TagInt {
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "tuple index must be Int")
		}
		v, exc := t.At(int(idx.Int()))
		if exc != nil {
			return value.None(), exc
		}
		return v.Clone(), nil
	}
	if r, ok := objects.AsRange(obj); ok {
		if idx.Tag() != value.TagInt {
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "range index must be Int")
		}
		i := int(idx.Int())
		if i < 0 || i >= r.Len() {
			return value.None(), objects.NewException(objects.ExcIndexOutOfBounds, "range index out of bounds")
		}
		return r.ElemAt(i), nil
	}
	if d, ok := objects.AsDict(obj); ok {
		v, exc := d.At(idx)
		if exc != nil {
			return value.None(), exc
		}
		return v.Clone(), nil
	}
	return value.None(), objects.NewException(objects.ExcInvalidOperand, "value does not support indexing")
}

func (vm *VM) opAssignIndex() *objects.Exception {
	val := vm.pop()
	idx := vm.pop()
	container := vm.pop()
	exc := assignIndex(container, idx, val)
	container.Release()
	if exc != nil {
		return exc
	}
	vm.push(value.None())
	return nil
}

// assignIndex always consumes idx and val, either storing them (List, whose
// SetAt takes ownership) or cloning-then-releasing them (Dict, whose
// InsertOrUpdate clones both internally).
func assignIndex(container, idx, val value.Value) *objects.Exception {
	obj := container.Object()
	if obj == nil {
		idx.Release()
		val.Release()
		return objects.NewException(objects.ExcInvalidOperand, "value does not support index assignment")
	}
	if l, ok := objects.AsList(obj); ok {
		if idx.Tag() != value.TagInt {
			idx.Release()
			val.Release()
			return objects.NewException(objects.ExcInvalidArgument, "list index must be Int")
		}
		i := int(idx.Int())
		idx.Release()
		return l.SetAt(i, val)
	}
	if d, ok := objects.AsDict(obj); ok {
		d.InsertOrUpdate(idx, val)
		idx.Release()
		val.Release()
		return nil
	}
	idx.Release()
	val.Release()
	return objects.NewException(objects.ExcInvalidOperand, "value does not support index assignment")
}

func (vm *VM) opCallNative(hash uint64) *objects.Exception {
	entry, ok := vm.natives[hash]
	if !ok {
		return objects.NewException(objects.ExcFunctionNotFound, "native function not registered")
	}
	args := vm.popN(entry.arity)
	result, exc := entry.fn(args)
	if exc != nil {
		return exc
	}
	vm.push(result)
	return nil
}

func (vm *VM) binaryOp(op bytecode.Op) *objects.Exception {
	b := vm.pop()
	a := vm.pop()
	var result value.Value
	var exc *objects.Exception
	switch op {
	case bytecode.OpLogicOr:
		result = objects.LogicOr(a, b)
	case bytecode.OpLogicAnd:
		result = objects.LogicAnd(a, b)
	case bytecode.OpBitwiseOr:
		result, exc = objects.BitwiseOr(a, b)
	case bytecode.OpBitwiseXor:
		result, exc = objects.BitwiseXor(a, b)
	case bytecode.OpBitwiseAnd:
		result, exc = objects.BitwiseAnd(a, b)
	case bytecode.OpEqual:
		result = objects.Equal(a, b)
	case bytecode.OpNotEqual:
		result = objects.NotEqual(a, b)
	case bytecode.OpLessThan:
		result, exc = objects.LessThan(a, b)
	case bytecode.OpLessEqual:
		result, exc = objects.LessEqual(a, b)
	case bytecode.OpGreaterThan:
		result, exc = objects.GreaterThan(a, b)
	case bytecode.OpGreaterEqual:
		result, exc = objects.GreaterEqual(a, b)
	case bytecode.OpLeftShift:
		result, exc = objects.LeftShift(a, b)
	case bytecode.OpRightShift:
		result, exc = objects.RightShift(a, b)
	case bytecode.OpAddition:
		result, exc = objects.Addition(a, b)
	case bytecode.OpSubtraction:
		result, exc = objects.Subtraction(a, b)
	case bytecode.OpMultiply:
		result, exc = objects.Multiply(a, b)
	case bytecode.OpDivide:
		result, exc = objects.Divide(a, b)
	case bytecode.OpModulus:
		result, exc = objects.Modulus(a, b)
	default:
		vm.fatalf("binaryOp called with non-binary op %s", op)
	}
	a.Release()
	b.Release()
	if exc != nil {
		return exc
	}
	vm.push(result)
	return nil
}

func (vm *VM) unaryOp(op bytecode.Op) *objects.Exception {
	v := vm.pop()
	var result value.Value
	var exc *objects.Exception
	switch op {
	case bytecode.OpLogicNot:
		result = objects.LogicNot(v)
	case bytecode.OpBitwiseNot:
		result, exc = objects.BitwiseNot(v)
	case bytecode.OpNegate:
		result, exc = objects.Negate(v)
	case bytecode.OpPlus:
		result, exc = objects.Plus(v)
	default:
		vm.fatalf("unaryOp called with non-unary op %s", op)
	}
	v.Release()
	if exc != nil {
		return exc
	}
	vm.push(result)
	return nil
}
