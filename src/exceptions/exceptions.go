/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package exceptions implements §4.7's exception machinery: mapping an
// internal kind to its fully-qualified Java class, creating and throwing
// an instance, and unwinding the frame chain to find a handler.
package exceptions

import (
	"jacobin/classloader"
	"jacobin/frames"
	"jacobin/gc"
	"jacobin/object"
	"jacobin/thread"
)

// Kind enumerates the internal exception kinds §4.7 requires
// throw_and_create to handle. Order matches the original's excp_strs
// table (§10.7) so a reviewer can line the two up.
type Kind int

const (
	NullPointer Kind = iota
	IndexOutOfBounds
	ArrayIndexOutOfBounds
	IncompatibleClassChange
	NegativeArraySize
	OutOfMemory
	ClassNotFound
	Arithmetic
	NoSuchField
	NoSuchMethod
	RuntimeKind
	IO
	FileNotFound
	Interrupted
	NumberFormat
	StringIndexOutOfBounds
)

// fqns maps each internal kind to its fully-qualified Java class name,
// grounded on the original's excp_strs[16] table.
var fqns = map[Kind]string{
	NullPointer:             "java/lang/NullPointerException",
	IndexOutOfBounds:        "java/lang/IndexOutOfBoundsException",
	ArrayIndexOutOfBounds:   "java/lang/ArrayIndexOutOfBoundsException",
	IncompatibleClassChange: "java/lang/IncompatibleClassChangeError",
	NegativeArraySize:       "java/lang/NegativeArraySizeException",
	OutOfMemory:             "java/lang/OutOfMemoryError",
	ClassNotFound:           "java/lang/ClassNotFoundException",
	Arithmetic:              "java/lang/ArithmeticException",
	NoSuchField:             "java/lang/NoSuchFieldError",
	NoSuchMethod:            "java/lang/NoSuchMethodError",
	RuntimeKind:             "java/lang/RuntimeException",
	IO:                      "java/io/IOException",
	FileNotFound:            "java/io/FileNotFoundException",
	Interrupted:             "java/lang/InterruptedException",
	NumberFormat:            "java/lang/NumberFormatException",
	StringIndexOutOfBounds:  "java/lang/StringIndexOutOfBoundsException",
}

// FQN returns the fully qualified class name for an internal kind.
func FQN(k Kind) string { return fqns[k] }

// ThrowAndCreate maps kind to its FQN, loads that class, allocates and
// "constructs" an instance (the detail message is stored directly in
// field 0 rather than run through a real <init>, since this
// implementation does not ship real java.lang exception classes -- see
// DESIGN.md), then throws it. Mirrors hb_throw_and_create_excp.
func ThrowAndCreate(t *thread.ExecThread, kind Kind, message string) error {
	className := FQN(kind)
	cls, err := classloader.GetOrLoad(className)
	if err != nil {
		return err
	}

	ref := gc.NewObject(cls)
	msgRef := gc.NewStringObject(message)
	if len(ref.Ptr.Fields) == 0 {
		ref.Ptr.Fields = make([]object.Field, 1)
	}
	ref.Ptr.Fields[0] = object.Field{Ftype: "Ljava/lang/String;", Fvalue: msgRef.Ptr}

	ThrowException(t, ref)
	return nil
}

// ThrowException scans frames from the current one outward for a handler,
// per §4.7: an entry matches iff the PC lies in [start_pc, end_pc) and the
// catch type's name exactly equals the exception's class name (subtype
// matching is a planned refinement, never implemented here -- per spec
// body and DESIGN.md Open Question b). On no match anywhere, the frame
// chain empties and the thread terminates silently, observed by the
// interpreter loop via t.Top == nil.
//
// Unlike the original's hb_throw_exception, which recurses on the caller
// frame, this walks the chain with a loop (§9 Design Note, Open Question
// e) to avoid host-stack overflow under deep nesting.
func ThrowException(t *thread.ExecThread, ref object.Reference) {
	excClassName := ""
	if ref.Ptr != nil && ref.Ptr.Klass != nil && ref.Ptr.Klass.Data != nil {
		excClassName = ref.Ptr.Klass.Data.Name
	}

	for t.Top != nil {
		frame := t.Top
		if frame.Meth != nil {
			for _, exc := range frame.Meth.CodeAttrib.Exceptions {
				if inRange(exc.StartPc, exc.EndPc, frame.PC) && catchMatches(frame, exc.CatchType, excClassName) {
					frame.TOS = -1
					frame.Push(frames.Ref(ref))
					frame.PC = exc.HandlerPc
					return
				}
			}
		}
		t.PopFrame()
	}
}

func inRange(start, end, pc int) bool {
	return pc >= start && pc < end
}

func catchMatches(frame *frames.Frame, catchType uint16, excClassName string) bool {
	if catchType == 0 {
		return true // "any" handler
	}
	if frame.Class == nil || frame.Class.Data == nil {
		return false
	}
	name, err := classloader.ClassNameAt(&frame.Class.Data.CP, int(catchType))
	if err != nil {
		return false
	}
	return name == excClassName
}

// MessageOf extracts the detail message from an exception instance:
// fields[0] is a String ref whose char-array field holds the message.
// Mirrors get_excp_str, used by the uncaught-exception printer (§7).
func MessageOf(ref object.Reference) string {
	if ref.IsNull() || len(ref.Ptr.Fields) == 0 {
		return ""
	}
	strObj, ok := ref.Ptr.Fields[0].Fvalue.(*object.Object)
	if !ok || strObj == nil {
		return ""
	}
	return object.GoString(strObj)
}
