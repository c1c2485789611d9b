// Package core defines the graph model the router searches over: formats,
// handlers, nodes, chains, and the file payloads that flow through them.
package core

import "context"

// Format is one declared input/output capability of one Handler.
type Format struct {
	// Name is a human-readable label ("JPEG Image").
	Name string
	// Code is the handler-internal short identifier ("jpeg"), also used
	// for display.
	Code string
	// Extension is the filename extension to apply on output ("jpg").
	Extension string
	// MIME is the canonical identity used for graph matching. A Format
	// with an empty MIME is never inserted into the registry's option
	// pool and therefore never becomes a graph node.
	MIME string
	// From reports whether the handler can read this format as input.
	From bool
	// To reports whether the handler can write this format as output.
	To bool
	// Internal is an opaque identifier the handler itself uses; the
	// router never inspects it.
	Internal any
}

// Equal reports structural equality, matching spec.md's "a given Format
// value appears at most once within a chain" cycle-prevention rule.
func (f Format) Equal(other Format) bool {
	return f.Code == other.Code && f.MIME == other.MIME && f.Extension == other.Extension
}

// FileData is one named byte buffer. Chains operate on ordered lists of
// FileData so multi-file inputs (e.g. an image plus a sidecar) remain
// valid across hops.
type FileData struct {
	Name  string
	Bytes []byte
}

// Handler is the uniform capability every format backend exposes.
type Handler interface {
	// Name uniquely identifies the handler; it is the identity used for
	// Node comparisons and as the PathStore advanced-mode cache key.
	Name() string
	// Ready reports whether Init has completed successfully.
	Ready() bool
	// Init performs lazy, at-most-once initialisation.
	Init(ctx context.Context) error
	// SupportedFormats returns the handler's declared formats. It may be
	// empty until Init has run; it is immutable thereafter.
	SupportedFormats() []Format
	// SupportsAnyInput reports whether this handler claims to accept
	// every input MIME (a renamer or wildcard-style handler).
	SupportsAnyInput() bool
	// Convert transforms files from one declared format to another.
	// Implementations must leave the handler in a state where another
	// Convert call can immediately follow.
	Convert(ctx context.Context, files []FileData, from, to Format) ([]FileData, error)
}

// Node is one participant in a chain: a (handler, format) pair. Two nodes
// from different handlers sharing the same MIME are distinct nodes.
type Node struct {
	Handler Handler
	Format  Format
}

// SameFormat reports whether two nodes declare an equal Format, the
// comparison chain construction uses for cycle prevention.
func (n Node) SameFormat(other Node) bool {
	return n.Format.Equal(other.Format)
}

// Chain is an ordered sequence of nodes describing a multi-step
// conversion. Chain[0] is the selected input option; Chain[len-1] is the
// node whose format matches the requested output.
type Chain []Node

// Clone returns a shallow copy safe to append to without aliasing the
// original's backing array.
func (c Chain) Clone() Chain {
	out := make(Chain, len(c))
	copy(out, c)
	return out
}

// HasFormat reports whether f already appears in the chain, the check
// chain expansion uses to prevent cycles per spec.md's invariant.
func (c Chain) HasFormat(f Format) bool {
	for _, n := range c {
		if n.Format.Equal(f) {
			return true
		}
	}
	return false
}
