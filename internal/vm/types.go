package vm

import (
	"strconv"
	"strings"

	"poise/internal/objects"
	"poise/internal/value"
)

// newTypeRegistry builds the singleton Type objects ConstructBuiltin,
// LoadType, and typeof all share, wiring each builtin's Construct to the
// object constructor package objects already exposes. Range's entry here
// always builds an exclusive range: the inclusive flag ConstructFunc has no
// room for is carried only by the `..`/`..=` operators, which
// opConstructBuiltin special-cases directly (see exec.go).
func newTypeRegistry(vm *VM) *objects.TypeRegistry {
	r := objects.NewTypeRegistry()
	r.Register(objects.NewType(value.TypeBool, "Bool", vm.constructBool))
	r.Register(objects.NewType(value.TypeFloat, "Float", vm.constructFloat))
	r.Register(objects.NewType(value.TypeInt, "Int", vm.constructInt))
	r.Register(objects.NewType(value.TypeNone, "None", vm.constructNone))
	r.Register(objects.NewType(value.TypeString, "String", vm.constructString))
	r.Register(objects.NewType(value.TypeException, "Exception", vm.constructException))
	r.Register(objects.NewType(value.TypeFunction, "Function", nil))
	r.Register(objects.NewType(value.TypeList, "List", vm.constructList))
	r.Register(objects.NewType(value.TypeRange, "Range", func(args []value.Value) (value.Value, *objects.Exception) {
		return vm.buildRange(args, false)
	}))
	r.Register(objects.NewType(value.TypeTuple, "Tuple", vm.constructTuple))
	r.Register(objects.NewType(value.TypeDict, "Dict", vm.constructDict))
	r.Register(objects.NewType(value.TypeSet, "Set", vm.constructSet))
	return r
}

func (vm *VM) constructBool(args []value.Value) (value.Value, *objects.Exception) {
	if len(args) != 1 {
		releaseAll(args)
		return value.None(), objects.NewException(objects.ExcIncorrectArgCount, "Bool() takes exactly one argument")
	}
	v := args[0]
	result := value.Bool(v.ToBool())
	v.Release()
	return result, nil
}

func (vm *VM) constructInt(args []value.Value) (value.Value, *objects.Exception) {
	if len(args) != 1 {
		releaseAll(args)
		return value.None(), objects.NewException(objects.ExcIncorrectArgCount, "Int() takes exactly one argument")
	}
	v := args[0]
	defer v.Release()
	switch v.Tag() {
	case value.TagInt:
		return value.Int(v.Int()), nil
	case value.TagFloat:
		return value.Int(int64(v.Float())), nil
	case value.TagBool:
		if v.Bool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.TagString:
		i, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
		if err != nil {
			return value.None(), objects.NewException(objects.ExcInvalidCast, "cannot cast string to Int")
		}
		return value.Int(i), nil
	default:
		return value.None(), objects.NewException(objects.ExcInvalidCast, "value cannot be cast to Int")
	}
}

func (vm *VM) constructFloat(args []value.Value) (value.Value, *objects.Exception) {
	if len(args) != 1 {
		releaseAll(args)
		return value.None(), objects.NewException(objects.ExcIncorrectArgCount, "Float() takes exactly one argument")
	}
	v := args[0]
	defer v.Release()
	switch v.Tag() {
	case value.TagFloat:
		return value.Float(v.Float()), nil
	case value.TagInt:
		return value.Float(float64(v.Int())), nil
	case value.TagString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err != nil {
			return value.None(), objects.NewException(objects.ExcInvalidCast, "cannot cast string to Float")
		}
		return value.Float(f), nil
	default:
		return value.None(), objects.NewException(objects.ExcInvalidCast, "value cannot be cast to Float")
	}
}

func (vm *VM) constructString(args []value.Value) (value.Value, *objects.Exception) {
	if len(args) != 1 {
		releaseAll(args)
		return value.None(), objects.NewException(objects.ExcIncorrectArgCount, "String() takes exactly one argument")
	}
	v := args[0]
	result := value.String(v.String())
	v.Release()
	return result, nil
}

func (vm *VM) constructNone(args []value.Value) (value.Value, *objects.Exception) {
	releaseAll(args)
	return value.None(), nil
}

func (vm *VM) constructException(args []value.Value) (value.Value, *objects.Exception) {
	if len(args) != 1 || args[0].Tag() != value.TagString {
		releaseAll(args)
		return value.None(), objects.NewException(objects.ExcInvalidArgument, "Exception() takes exactly one String message")
	}
	msg := args[0].Str()
	args[0].Release()
	e := objects.NewException(objects.ExcException, msg)
	return value.FromObject(e), nil
}

func (vm *VM) constructList(args []value.Value) (value.Value, *objects.Exception) {
	l := objects.NewList(args)
	vm.track(l)
	return value.FromObject(l), nil
}

func (vm *VM) constructTuple(args []value.Value) (value.Value, *objects.Exception) {
	t := objects.NewTuple(args)
	vm.track(t)
	return value.FromObject(t), nil
}

func (vm *VM) constructDict(args []value.Value) (value.Value, *objects.Exception) {
	d := objects.NewDict()
	for i, pair := range args {
		t, ok := objects.AsTuple(pair.Object())
		if !ok || len(t.Values) != 2 {
			for _, rest := range args[i:] {
				rest.Release()
			}
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "Dict() expects (key, value) tuples")
		}
		d.InsertOrUpdate(t.Values[0], t.Values[1])
		pair.Release()
	}
	vm.track(d)
	return value.FromObject(d), nil
}

func (vm *VM) constructSet(args []value.Value) (value.Value, *objects.Exception) {
	s := objects.NewSetFrom(args)
	for _, a := range args {
		a.Release()
	}
	vm.track(s)
	return value.FromObject(s), nil
}

// buildRange is shared by the Range Type's Construct entry (an explicit
// `Range(start, end, step)` call, always exclusive) and opConstructBuiltin's
// special-cased dispatch for the `..`/`..=` operators, which do carry their
// own inclusive flag.
func (vm *VM) buildRange(args []value.Value, inclusive bool) (value.Value, *objects.Exception) {
	if len(args) != 3 {
		releaseAll(args)
		return value.None(), objects.NewException(objects.ExcIncorrectArgCount, "Range() takes exactly 3 arguments")
	}
	for _, a := range args {
		if a.Tag() != value.TagInt {
			releaseAll(args)
			return value.None(), objects.NewException(objects.ExcInvalidArgument, "Range() arguments must be Int")
		}
	}
	r := objects.NewRange(args[0].Int(), args[1].Int(), args[2].Int(), inclusive)
	vm.track(r)
	return value.FromObject(r), nil
}
