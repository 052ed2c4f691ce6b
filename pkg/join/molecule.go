// Package join is the public, typed facade over internal/jc: Molecule[T]
// and BlockingMolecule[T,R] give emitters static payload types without a
// macro or code-generation layer, matching the spec's design note that
// reactions are built explicitly with a combinator-style pattern API rather
// than generated pattern matching.
package join

import "github.com/winitzki/chymyst-go/internal/jc"

type emitterHandle interface {
	raw() *jc.Molecule
}

// Molecule is a typed, non-blocking emitter for payload type T.
type Molecule[T any] struct {
	m *jc.Molecule
}

func NewMolecule[T any](name string) *Molecule[T] {
	return &Molecule[T]{m: jc.NewMolecule(name)}
}

func (m *Molecule[T]) Name() string      { return m.m.Name() }
func (m *Molecule[T]) raw() *jc.Molecule { return m.m }

// BlockingMolecule is a typed, blocking emitter: payload type T, reply type R.
type BlockingMolecule[T, R any] struct {
	m *jc.Molecule
}

func NewBlockingMolecule[T, R any](name string) *BlockingMolecule[T, R] {
	return &BlockingMolecule[T, R]{m: jc.NewBlockingMolecule(name)}
}

func (m *BlockingMolecule[T, R]) Name() string      { return m.m.Name() }
func (m *BlockingMolecule[T, R]) raw() *jc.Molecule { return m.m }
