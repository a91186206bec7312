// Package decl holds small, opaque descriptors for frontend declarations
// (classes, functions, annotations) that the resolver needs only to
// render into diagnostics or use as stable map keys. It plays the role
// dig's internal/digreflect.Func plays for constructor locations, widened
// to cover classes and annotations as spec.md's graph-node assembly
// needs them.
package decl

import "fmt"

// ClassID uniquely identifies a class within a compilation unit, as
// assigned by the frontend. Two ClassIDs are equal iff they name the
// same declaration.
type ClassID string

// Class is the frontend's minimal projection of a class declaration:
// enough for the resolver to walk supertypes, locate annotations, and
// report diagnostics without understanding the host language's full AST.
type Class struct {
	ID         ClassID
	Name       string
	Supertypes []ClassID
	File       string
	Line       int
}

func (c Class) String() string {
	if c.File == "" {
		return c.Name
	}
	return fmt.Sprintf("%s (%s:%d)", c.Name, c.File, c.Line)
}

// FuncID uniquely identifies a function/method within a class.
type FuncID string

// Declaration is a reportable source location: a function, property, or
// constructor the frontend can point diagnostics at.
type Declaration struct {
	Class ClassID
	Func  FuncID
	Name  string
	File  string
	Line  int
}

func (d Declaration) String() string {
	if d.File == "" {
		return d.Name
	}
	return fmt.Sprintf("%s (%s:%d)", d.Name, d.File, d.Line)
}

// IsZero reports whether d is the zero Declaration (no reportable
// location — used for synthetic bindings).
func (d Declaration) IsZero() bool {
	return d == Declaration{}
}

// Annotation is an annotation-use, e.g. `@Singleton` or
// `@Named("db")`. Scope annotations, qualifiers that aren't attached to
// a TypeKey, and marker annotations (`@Binds`, `@Multibinds`, ...) are
// all represented this way.
type Annotation struct {
	Name string
	Args map[string]string
}

func (a Annotation) String() string {
	return "@" + a.Name
}

// Equal reports whether two annotations name the same declaration
// (arguments aside) — sufficient for scope-set membership checks.
func (a Annotation) Equal(other Annotation) bool {
	return a.Name == other.Name
}
