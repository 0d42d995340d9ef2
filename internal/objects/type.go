package objects

import (
	"fmt"

	"poise/internal/value"
)

// ConstructFunc builds a value of the owning Type from already-evaluated
// call arguments. Returning a non-nil *Exception aborts construction.
type ConstructFunc func(args []value.Value) (value.Value, *Exception)

// Type is the runtime reflection object: what `typeof` returns, what
// LoadType pushes for a bare type identifier, and what ConstructBuiltin
// dispatches through to build a List/Range/Tuple/Dict/Set/Exception/etc.
// Extension functions declared as `func name(this T, ...)` are looked up
// here by LoadMember when the member isn't a struct field.
type Type struct {
	value.Header
	Tag         value.TypeTag
	DisplayName string
	Construct   ConstructFunc
	Extensions  map[uint64]*Function
}

// NewType constructs a Type object. Built-in types are created once at VM
// startup and never released; they are not runtime-tracked.
func NewType(tag value.TypeTag, displayName string, construct ConstructFunc) *Type {
	return &Type{
		Tag:         tag,
		DisplayName: displayName,
		Construct:   construct,
		Extensions:  make(map[uint64]*Function),
	}
}

func (t *Type) ObjectType() value.ObjectType { return value.ObjType }

func (t *Type) String() string {
	return fmt.Sprintf("<type %s>", t.DisplayName)
}

func (t *Type) FindObjectMembers(*[]value.Value)            {}
func (t *Type) RemoveObjectMembers()                        {}
func (t *Type) AnyMemberMatchesRecursive(value.Object) bool { return false }

// AddExtension registers fn as an extension function for this type under
// nameHash, the member-name hash it will be resolved by.
func (t *Type) AddExtension(nameHash uint64, fn *Function) {
	t.Extensions[nameHash] = fn
}

// Extension looks up a previously registered extension function.
func (t *Type) Extension(nameHash uint64) (*Function, bool) {
	fn, ok := t.Extensions[nameHash]
	return fn, ok
}

// AsType downcasts, returning ok=false if obj is nil or not a Type.
func AsType(obj value.Object) (*Type, bool) {
	if obj == nil {
		return nil, false
	}
	t, ok := obj.(*Type)
	return t, ok
}

// TypeOf computes the runtime Type value.Value for any Value, used by the
// typeof expression and the TypeOf op.
func TypeOf(registry *TypeRegistry, v value.Value) value.Value {
	switch v.Tag() {
	case value.TagBool:
		return registry.Get(value.TypeBool)
	case value.TagInt:
		return registry.Get(value.TypeInt)
	case value.TagFloat:
		return registry.Get(value.TypeFloat)
	case value.TagString:
		return registry.Get(value.TypeString)
	case value.TagNone:
		return registry.Get(value.TypeNone)
	case value.TagObject:
		obj := v.Object()
		if obj == nil {
			return registry.Get(value.TypeNone)
		}
		switch o := obj.(type) {
		case *Function:
			return registry.Get(value.TypeFunction)
		case *Exception:
			return registry.Get(value.TypeException)
		case *List:
			return registry.Get(value.TypeList)
		case *Range:
			return registry.Get(value.TypeRange)
		case *Tuple:
			return registry.Get(value.TypeTuple)
		case *Dict:
			return registry.Get(value.TypeDict)
		case *Set:
			return registry.Get(value.TypeSet)
		case *Type:
			return value.FromObject(o)
		default:
			// *Struct and *Iterator have no entry in value.TypeTag: a
			// struct's runtime type is its own StructTemplate, looked up
			// through the namespace manager rather than this registry,
			// and an Iterator is never a user-visible type.
			return registry.Get(value.TypeNone)
		}
	default:
		return registry.Get(value.TypeNone)
	}
}

// TypeRegistry maps every TypeTag to its singleton runtime Type object. It
// is populated once at VM startup (see vm.newTypeRegistry) and consulted by
// LoadType, ConstructBuiltin, and typeof.
type TypeRegistry struct {
	byTag map[value.TypeTag]value.Value
}

// NewTypeRegistry builds an empty registry; callers populate it with
// Register.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byTag: make(map[value.TypeTag]value.Value)}
}

// Register installs t as the singleton for its own Tag.
func (r *TypeRegistry) Register(t *Type) {
	r.byTag[t.Tag] = value.FromObject(t)
}

// Get returns the singleton Type value for tag. Panics if unregistered,
// which would indicate a VM initialization bug, not a user error.
func (r *TypeRegistry) Get(tag value.TypeTag) value.Value {
	v, ok := r.byTag[tag]
	if !ok {
		panic(fmt.Sprintf("no registered type for tag %s", tag))
	}
	return v
}

// TypeObject returns the underlying *Type for tag.
func (r *TypeRegistry) TypeObject(tag value.TypeTag) *Type {
	v := r.Get(tag)
	t, _ := AsType(v.Object())
	return t
}
