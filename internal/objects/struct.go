package objects

import (
	"poise/internal/value"
)

// StructMember is a single {name, name_hash, value} slot, shared in shape by
// both the compile-time template (where value is the member's default,
// computed by the constant evaluator) and the runtime instance (where value
// is the live, per-instance field).
type StructMember struct {
	Name     string
	NameHash uint64
	Value    value.Value
}

// StructTemplate is the struct declaration registered in a namespace: the
// member list carries only defaults, never per-instance state.
type StructTemplate struct {
	Name     string
	NameHash uint64
	Exported bool
	Members  []StructMember
}

// NewStructTemplate constructs a template with no members; the compiler
// appends one StructMember per declared field as it parses the body.
func NewStructTemplate(name string, nameHash uint64, exported bool) *StructTemplate {
	return &StructTemplate{Name: name, NameHash: nameHash, Exported: exported}
}

func (t *StructTemplate) AddMember(name string, nameHash uint64, defaultValue value.Value) {
	t.Members = append(t.Members, StructMember{Name: name, NameHash: nameHash, Value: defaultValue})
}

// Struct is a runtime instance of a StructTemplate: `Name { field: value, ... }`
// construction clones the template's defaults, then overwrites whichever
// fields the construction expression supplied.
type Struct struct {
	value.Header
	Name     string
	NameHash uint64
	Exported bool
	Members  []StructMember
}

// Instantiate builds a tracked Struct from template, applying overrides
// (keyed by member name-hash) on top of the template's cloned defaults.
// An override naming a member the template doesn't have is ignored; field
// names are not checked against the template anywhere else either.
func Instantiate(template *StructTemplate, overrides map[uint64]value.Value) *Struct {
	s := &Struct{Name: template.Name, NameHash: template.NameHash, Exported: template.Exported}
	s.Members = make([]StructMember, len(template.Members))
	for i, m := range template.Members {
		v := m.Value.Clone()
		if override, ok := overrides[m.NameHash]; ok {
			v.Release()
			v = override.Clone()
		}
		s.Members[i] = StructMember{Name: m.Name, NameHash: m.NameHash, Value: v}
	}
	s.SetTracked(true)
	return s
}

func (s *Struct) ObjectType() value.ObjectType { return value.ObjStruct }

func (s *Struct) String() string {
	return withStringifyGuard(s, func() string {
		out := s.Name + " { "
		for i, m := range s.Members {
			if i > 0 {
				out += ", "
			}
			out += m.Name + ": " + stringifyValue(m.Value)
		}
		return out + " }"
	})
}

func (s *Struct) FindObjectMembers(out *[]value.Value) {
	for _, m := range s.Members {
		*out = append(*out, m.Value)
	}
}

func (s *Struct) RemoveObjectMembers() {
	for i := range s.Members {
		s.Members[i].Value.Release()
	}
	s.Members = nil
}

func (s *Struct) AnyMemberMatchesRecursive(target value.Object) bool {
	for _, m := range s.Members {
		if o := m.Value.Object(); o != nil {
			if o == target || o.AnyMemberMatchesRecursive(target) {
				return true
			}
		}
	}
	return false
}

// Member looks up a field by name-hash, used by LoadMember.
func (s *Struct) Member(nameHash uint64) (value.Value, bool) {
	for _, m := range s.Members {
		if m.NameHash == nameHash {
			return m.Value, true
		}
	}
	return value.None(), false
}

// SetMember overwrites a field by name-hash, used by member-assignment.
// Returns false if no member with that hash exists.
func (s *Struct) SetMember(nameHash uint64, v value.Value) bool {
	for i := range s.Members {
		if s.Members[i].NameHash == nameHash {
			s.Members[i].Value.Release()
			s.Members[i].Value = v.Clone()
			return true
		}
	}
	return false
}

// AsStruct downcasts, returning ok=false if obj is nil or not a Struct.
func AsStruct(obj value.Object) (*Struct, bool) {
	if obj == nil {
		return nil, false
	}
	st, ok := obj.(*Struct)
	return st, ok
}
