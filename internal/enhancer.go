package internal

// Enhancer is the write-time policy spec.md §4.2 step 2 calls for: applied
// to a new value before the equality check, it decides whether nested
// structures are made observable. Observable containers are out of scope
// for this engine (spec.md §1 treats them as an external collaborator), so
// Deep and Shallow are hook points rather than full recursive wrapping —
// they defer to Enhanceable when the value opts in, and otherwise behave
// like Reference. A future container package can implement Enhanceable to
// get real deep/shallow behavior without any change here.
type Enhancer func(newValue, oldValue any) any

// Enhanceable lets an external value (e.g. an observable list/set/dict)
// participate in enhancement without this engine knowing its concrete type.
type Enhanceable interface {
	Enhance(old any) any
}

// ReferenceEnhancer stores the new value unchanged.
func ReferenceEnhancer(newValue, _ any) any {
	return newValue
}

// ShallowEnhancer wraps only the top level: if newValue opts into
// Enhanceable, its own Enhance is invoked; otherwise it behaves like
// Reference.
func ShallowEnhancer(newValue, oldValue any) any {
	if e, ok := newValue.(Enhanceable); ok {
		return e.Enhance(oldValue)
	}
	return newValue
}

// DeepEnhancer recursively converts nested containers into observable
// variants when newValue (or, in a real container package, its elements)
// opts into Enhanceable. Without a container package in scope it behaves
// identically to ShallowEnhancer.
func DeepEnhancer(newValue, oldValue any) any {
	return ShallowEnhancer(newValue, oldValue)
}
