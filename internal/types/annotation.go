package types

import "fmt"

// AnnotationTable is the unifier's output: a map from (ast-tag, slot) to
// the resolved Type at that syntactic position, plus a map of named
// variables to their (possibly still-generic) type and a registry of
// struct layouts. It is consumed read-only by the mutability checker and
// the transpiler.
type AnnotationTable struct {
	byTag      map[TaggedVarKey]Type
	byVariable map[string]Type
	structs    map[string]*StructLayout
	origins    map[uint64]*Origin
}

// NewAnnotationTable returns an empty table.
func NewAnnotationTable() *AnnotationTable {
	return &AnnotationTable{
		byTag:      map[TaggedVarKey]Type{},
		byVariable: map[string]Type{},
		structs:    map[string]*StructLayout{},
		origins:    map[uint64]*Origin{},
	}
}

// AnnotateOrigin records that the method call or trait-method reference at
// tag dispatched through o. Unlike a node's Type, this can't be recovered
// by substituting the final solution into the node's own type variable: a
// Func value's Origin is consumed and discarded the moment step()
// decomposes it into Args/Ret equations, so internal/driver captures it
// separately, in a pass over the already-solved body, once every receiver
// type is concrete.
func (a *AnnotationTable) AnnotateOrigin(tag uint64, o *Origin) { a.origins[tag] = o }

// OriginFor returns the trait-dispatch origin recorded for tag, if any.
func (a *AnnotationTable) OriginFor(tag uint64) (*Origin, bool) {
	o, ok := a.origins[tag]
	return o, ok
}

// Annotate records the resolved type for a syntactic site.
func (a *AnnotationTable) Annotate(tag uint64, slot int, t Type) {
	a.byTag[TaggedVarKey{Tag: tag, Slot: slot}] = t
}

// Lookup returns the resolved type at (tag, slot), if present.
func (a *AnnotationTable) Lookup(tag uint64, slot int) (Type, bool) {
	t, ok := a.byTag[TaggedVarKey{Tag: tag, Slot: slot}]
	return t, ok
}

// BindVariable records the resolved type of a named binding (a function, a
// let-bound local once its defining function finishes inference).
func (a *AnnotationTable) BindVariable(name string, t Type) { a.byVariable[name] = t }

// Variable returns the resolved type bound to name, if any.
func (a *AnnotationTable) Variable(name string) (Type, bool) {
	t, ok := a.byVariable[name]
	return t, ok
}

// StructLayout describes a declared struct's generic parameters and field
// types, as lowered (unsubstituted) Types over those generics.
type StructLayout struct {
	Name     string
	Generics []string
	Fields   map[string]Type
	Order    []string // field declaration order, for deterministic transpilation
}

// RegisterStruct adds or overwrites a struct's layout.
func (a *AnnotationTable) RegisterStruct(layout *StructLayout) { a.structs[layout.Name] = layout }

// Struct looks up a struct's layout by name.
func (a *AnnotationTable) Struct(name string) (*StructLayout, bool) {
	s, ok := a.structs[name]
	return s, ok
}

// Dump renders every resolved (ast-tag, slot) -> Type entry as
// "tag:slot" -> type-string pairs, sorted for deterministic output. Used by
// the CLI's `-dump-types` debug flag to serialize the annotation table.
func (a *AnnotationTable) Dump() map[string]string {
	out := make(map[string]string, len(a.byTag))
	for k, v := range a.byTag {
		out[fmt.Sprintf("%d:%d", k.Tag, k.Slot)] = v.String()
	}
	return out
}
