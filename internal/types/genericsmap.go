package types

import "github.com/niuc-lang/niuc/internal/ast"

// GenericsTypeMap is a stack of frames mapping a generic TypeId to the Type
// it was instantiated with, used while lowering a TypeSpec that appears
// inside a generic function body or where-clause. Frames are immutable once
// pushed; Next returns a new frame chained to the receiver, leaving the
// receiver untouched (mirroring the teacher's persistent-environment style
// in internal/types.TypeEnv).
type GenericsTypeMap struct {
	frame map[ast.TypeId]Type
	next  *GenericsTypeMap
}

// EmptyGenericsTypeMap is the root of the chain: no generics bound.
func EmptyGenericsTypeMap() *GenericsTypeMap {
	return &GenericsTypeMap{frame: map[ast.TypeId]Type{}}
}

// Next returns a new map with frame pushed in front of m.
func (m *GenericsTypeMap) Next(frame map[ast.TypeId]Type) *GenericsTypeMap {
	return &GenericsTypeMap{frame: frame, next: m}
}

// Get looks up id, searching from the newest frame outward.
func (m *GenericsTypeMap) Get(id ast.TypeId) (Type, bool) {
	for f := m; f != nil; f = f.next {
		if t, ok := f.frame[id]; ok {
			return t, true
		}
	}
	return nil, false
}
