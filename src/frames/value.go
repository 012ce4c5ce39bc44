/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package frames is the stack & frame runtime (§4.5): the per-thread frame
// chain, each frame's locals and operand stack, and parameter marshalling
// between caller and callee.
package frames

import "jacobin/object"

// ValueKind tags what a Value slot actually holds. Value replaces the
// original's untyped 64-bit union (§3, §9 Design Note) with an explicit
// Go sum type; long/double still occupy two adjacent slots (the faithful,
// two-slot model chosen at §4.5) rather than being packed into one.
type ValueKind byte

const (
	KindI32 ValueKind = iota
	KindI64
	KindF32
	KindF64
	KindRef
)

// Value is one operand-stack or locals slot.
type Value struct {
	Kind ValueKind
	I32  int32
	I64  int64
	F32  float32
	F64  float64
	Ref  object.Reference
}

func I32(v int32) Value { return Value{Kind: KindI32, I32: v} }
func I64(v int64) Value { return Value{Kind: KindI64, I64: v} }
func F32(v float32) Value { return Value{Kind: KindF32, F32: v} }
func F64(v float64) Value { return Value{Kind: KindF64, F64: v} }
func Ref(r object.Reference) Value { return Value{Kind: KindRef, Ref: r} }
func NullRef() Value { return Value{Kind: KindRef, Ref: object.Reference{}} }

// IsWide reports whether this value occupies two locals slots (long or
// double), per §4.5's wide-slot handling.
func (v Value) IsWide() bool {
	return v.Kind == KindI64 || v.Kind == KindF64
}

// Number is the generic constraint shared by the interpreter's arithmetic
// opcode handlers, mirroring the teacher's add[N]/multiply[N]/subtract[N]
// generic helpers.
type Number interface {
	~int32 | ~int64 | ~float32 | ~float64
}

// Add, Multiply, Subtract are the generic binary-op helpers the bytecode
// interpreter's i/l/f/d add/sub/mul handlers all funnel through.
func Add[N Number](a, b N) N      { return a + b }
func Multiply[N Number](a, b N) N { return a * b }
func Subtract[N Number](a, b N) N { return a - b }
