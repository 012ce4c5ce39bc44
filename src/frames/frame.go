/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package frames

import "jacobin/classloader"

// Frame is the per-invocation record: PC, owning method, locals, operand
// stack, and the doubly-linked prev/next pointers that form the thread's
// frame chain (§3, §4.5).
type Frame struct {
	PC     int
	Meth   *classloader.Method
	Class  *classloader.Klass
	ClName string // class name, cached so exception printing never needs Class resolved

	Locals  []Value
	OpStack []Value
	TOS     int // index of the top slot; -1 means empty

	Prev *Frame
	Next *Frame
}

// NewFrame allocates a frame for the given method: locals sized to
// maxLocals, operand stack capacity maxStack+1 (§4.5). The stack starts
// empty (TOS = -1).
func NewFrame(meth *classloader.Method, class *classloader.Klass, className string) *Frame {
	maxLocals := meth.CodeAttrib.MaxLocals
	maxStack := meth.CodeAttrib.MaxStack
	return &Frame{
		Meth:    meth,
		Class:   class,
		ClName:  className,
		Locals:  make([]Value, maxLocals),
		OpStack: make([]Value, maxStack+1),
		TOS:     -1,
	}
}

// Push places v on top of the operand stack.
func (f *Frame) Push(v Value) {
	f.TOS++
	f.OpStack[f.TOS] = v
}

// Pop removes and returns the top of the operand stack.
func (f *Frame) Pop() Value {
	v := f.OpStack[f.TOS]
	f.TOS--
	return v
}

// Peek returns the top of the operand stack without removing it.
func (f *Frame) Peek() Value {
	return f.OpStack[f.TOS]
}

// PushFrame links newFrame onto the top of the chain whose current tail is
// cur (nil if this is the first frame), per §4.5.
func PushFrame(cur *Frame, newFrame *Frame) *Frame {
	if cur != nil {
		cur.Next = newFrame
		newFrame.Prev = cur
	}
	return newFrame
}

// PopFrame unlinks f from the chain and returns the new current frame
// (f.Prev), releasing f's locals and operand stack. Matches hb_pop_frame:
// every exit path (normal return or exception unwind) must call this.
func PopFrame(f *Frame) *Frame {
	prev := f.Prev
	if prev != nil {
		prev.Next = nil
	}
	f.Locals = nil
	f.OpStack = nil
	return prev
}
