package ot

// Type is the operation vocabulary a history manager works with.
// Implementations must be stateless.
type Type interface {
	// Apply applies ops to doc left to right.
	Apply(doc Value, ops Batch) (Value, error)

	// Invert returns the inverse of an enriched operation.
	Invert(op Operation) (Operation, error)

	// InvertWithDoc returns the inverse of op, reading missing pre-edit
	// values from doc.
	InvertWithDoc(op Operation, doc Value) (Operation, error)

	// Enrich records the pre-edit values ops need for inversion.
	Enrich(doc Value, ops Batch) (Batch, error)

	// ComposeSimilar folds next into last when both can be represented by a
	// single operation.
	ComposeSimilar(last Operation, next Batch) (Operation, bool)
}

// Structural is the Type implemented by this package.
type Structural struct{}

// Apply implements Type.
func (Structural) Apply(doc Value, ops Batch) (Value, error) {
	return Apply(doc, ops)
}

// Invert implements Type.
func (Structural) Invert(op Operation) (Operation, error) {
	return Invert(op)
}

// InvertWithDoc implements Type.
func (Structural) InvertWithDoc(op Operation, doc Value) (Operation, error) {
	return InvertWithDoc(op, doc)
}

// Enrich implements Type.
func (Structural) Enrich(doc Value, ops Batch) (Batch, error) {
	return Enrich(doc, ops)
}

// ComposeSimilar implements Type.
func (Structural) ComposeSimilar(last Operation, next Batch) (Operation, bool) {
	merged, err := Merge(last, next)
	if err != nil {
		return Operation{}, false
	}

	return merged, true
}

var _ Type = Structural{}
