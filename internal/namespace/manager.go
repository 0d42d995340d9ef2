// Package namespace implements the compile-time and runtime namespace
// registry: one entry per source file, addressed by the FNV-1a hash of its
// cleaned path, holding the functions/structs/constants it declares and the
// set of namespaces it has imported.
package namespace

import (
	"fmt"
	"path/filepath"

	"poise/internal/intern"
	"poise/internal/objects"
	"poise/internal/value"
)

// Constant is a typed, named value registered with `const` (or `export
// const`) at the top level of a namespace.
type Constant struct {
	Name     string
	Value    value.Value
	Exported bool
}

// Entry is one namespace: a compiled source file. DisplayName is the
// path as written by the user (for error messages); the hash key used to
// address the Manager's maps is computed from the cleaned, canonical path
// so that "./a.poise" and "a.poise" resolve to the same namespace.
type Entry struct {
	Hash          uint64
	DisplayName   string
	Functions     map[uint64]*objects.Function
	Structs       map[uint64]*objects.StructTemplate
	Constants     map[string]Constant
	ImportedHashes map[uint64]bool
}

func newEntry(hash uint64, displayName string) *Entry {
	return &Entry{
		Hash:           hash,
		DisplayName:    displayName,
		Functions:      make(map[uint64]*objects.Function),
		Structs:        make(map[uint64]*objects.StructTemplate),
		Constants:      make(map[string]Constant),
		ImportedHashes: make(map[uint64]bool),
	}
}

// Manager is the compiler and VM's shared namespace registry, populated as
// each imported file is discovered and compiled.
type Manager struct {
	entries map[uint64]*Entry
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[uint64]*Entry)}
}

// HashPath computes the namespace hash for a source path, cleaning it first
// with filepath.Clean so that spellings such as "./a.poise" and "a.poise"
// collide. A relative path and its absolute form hash differently.
func HashPath(path string) uint64 {
	return intern.Hash(filepath.Clean(path))
}

// AddNamespace registers path under parentHash's import set (if parentHash
// is present in the manager) and creates an empty entry for path if one
// doesn't already exist. isNew reports whether a new entry was created,
// which the caller uses to decide whether the file still needs compiling.
func (m *Manager) AddNamespace(path, displayName string, parentHash uint64, hasParent bool) (hash uint64, isNew bool) {
	hash = HashPath(path)
	if hasParent {
		if parent, ok := m.entries[parentHash]; ok {
			parent.ImportedHashes[hash] = true
		}
	}
	if _, exists := m.entries[hash]; exists {
		return hash, false
	}
	m.entries[hash] = newEntry(hash, displayName)
	return hash, true
}

func (m *Manager) entry(hash uint64) (*Entry, bool) {
	e, ok := m.entries[hash]
	return e, ok
}

// NamespaceHasImportedNamespace reports whether child is in parent's
// transitive import set.
func (m *Manager) NamespaceHasImportedNamespace(parent, child uint64) bool {
	seen := make(map[uint64]bool)
	var walk func(h uint64) bool
	walk = func(h uint64) bool {
		if seen[h] {
			return false
		}
		seen[h] = true
		e, ok := m.entries[h]
		if !ok {
			return false
		}
		if e.ImportedHashes[child] {
			return true
		}
		for imported := range e.ImportedHashes {
			if walk(imported) {
				return true
			}
		}
		return false
	}
	return walk(parent)
}

// AddFunction registers fn under namespaceHash, keyed by the interned hash
// of its name.
func (m *Manager) AddFunction(namespaceHash uint64, fn *objects.Function) {
	e, ok := m.entry(namespaceHash)
	if !ok {
		return
	}
	e.Functions[fn.NameHash] = fn
}

// AddStruct registers tmpl under namespaceHash.
func (m *Manager) AddStruct(namespaceHash uint64, tmpl *objects.StructTemplate) {
	e, ok := m.entry(namespaceHash)
	if !ok {
		return
	}
	e.Structs[tmpl.NameHash] = tmpl
}

// AddConstant registers a const under namespaceHash.
func (m *Manager) AddConstant(namespaceHash uint64, name string, v value.Value, exported bool) {
	e, ok := m.entry(namespaceHash)
	if !ok {
		return
	}
	e.Constants[name] = Constant{Name: name, Value: v, Exported: exported}
}

// GetFunction looks up a function by namespace hash and name hash.
func (m *Manager) GetFunction(namespaceHash, nameHash uint64) (*objects.Function, bool) {
	e, ok := m.entry(namespaceHash)
	if !ok {
		return nil, false
	}
	fn, ok := e.Functions[nameHash]
	return fn, ok
}

// GetStruct looks up a struct template by namespace hash and name hash.
func (m *Manager) GetStruct(namespaceHash, nameHash uint64) (*objects.StructTemplate, bool) {
	e, ok := m.entry(namespaceHash)
	if !ok {
		return nil, false
	}
	tmpl, ok := e.Structs[nameHash]
	return tmpl, ok
}

// GetConstant looks up a const by namespace hash and spelled name.
func (m *Manager) GetConstant(namespaceHash uint64, name string) (Constant, bool) {
	e, ok := m.entry(namespaceHash)
	if !ok {
		return Constant{}, false
	}
	c, ok := e.Constants[name]
	return c, ok
}

// HasConstant reports whether name is a const in namespaceHash.
func (m *Manager) HasConstant(namespaceHash uint64, name string) bool {
	_, ok := m.GetConstant(namespaceHash, name)
	return ok
}

// DisplayName returns the path a namespace hash was registered under, or a
// synthetic placeholder if the hash is unknown (should not happen once
// compilation has run to completion).
func (m *Manager) DisplayName(namespaceHash uint64) string {
	if e, ok := m.entries[namespaceHash]; ok {
		return e.DisplayName
	}
	return fmt.Sprintf("<namespace %d>", namespaceHash)
}

// Entries exposes the raw entry map keyed by namespace hash, used by the
// VM's teardown sweep to walk every namespace's functions.
func (m *Manager) Entries() map[uint64]*Entry {
	return m.entries
}
