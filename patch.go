package handoff

// Patch is a deterministic mutation applied to a Writer's local value, given
// read-only access to the last-published (remote) value. Determinism is
// required: the committed patch log may be replayed against a different
// starting buffer during reclamation and must produce a value equal to the
// one already computed locally (see Writer.Diff).
//
// A Patch is either a closure (may capture state) or a plain function (may
// not); both are called through the same site. The distinction mirrors the
// two-variant dynamic dispatch the spec describes, kept for API parity even
// though Go does not let one box a function value more cheaply than another.
type Patch[T Cloneable[T]] struct {
	closure func(writer *T, reader T)
	fn      func(writer *T, reader T)
}

// ClosurePatch wraps a capturing function as a Patch.
func ClosurePatch[T Cloneable[T]](f func(writer *T, reader T)) Patch[T] {
	return Patch[T]{closure: f}
}

// FnPatch wraps a non-capturing function as a Patch.
// Capturing functions go through ClosurePatch.
func FnPatch[T Cloneable[T]](f func(writer *T, reader T)) Patch[T] {
	return Patch[T]{fn: f}
}

func (p *Patch[T]) apply(writer *T, reader T) {
	if p.fn != nil {
		p.fn(writer, reader)
		return
	}
	p.closure(writer, reader)
}

// CloneFromRemote returns the built-in "sync from remote" patch: it
// discards the writer's local value in favor of a clone of the current
// remote value. It is the default sync patch a Transaction installs on drop
// and is also usable directly with Add/AddCommit.
func CloneFromRemote[T Cloneable[T]]() Patch[T] {
	return FnPatch(func(writer *T, reader T) {
		*writer = reader.Clone()
	})
}
