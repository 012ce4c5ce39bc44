/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package exceptions

import (
	"jacobin/classloader"
	"jacobin/frames"
	"jacobin/gc"
	"jacobin/object"
	"jacobin/thread"
	"testing"
)

func excObject(cls *classloader.Klass) object.Reference {
	return gc.NewObject(cls)
}

func excObjectWithMessage(cls *classloader.Klass, msg string) object.Reference {
	ref := gc.NewObject(cls)
	msgRef := gc.NewStringObject(msg)
	ref.Ptr.Fields = make([]object.Field, 1)
	ref.Ptr.Fields[0] = object.Field{Ftype: "Ljava/lang/String;", Fvalue: msgRef.Ptr}
	return ref
}

// registerTrivialClass installs a Klass with no fields/superclass directly
// into MethArea, short-circuiting classloader.GetOrLoad's disk read so
// tests never need an actual .class file on a test classpath.
func registerTrivialClass(name string) *classloader.Klass {
	k := &classloader.Klass{
		Status: classloader.StatusInited,
		Data:   &classloader.ClData{Name: name},
	}
	classloader.MethArea.Add(name, k)
	return k
}

func TestFQNMapping(t *testing.T) {
	if got := FQN(NullPointer); got != "java/lang/NullPointerException" {
		t.Errorf("expected java/lang/NullPointerException, got %q", got)
	}
	if got := FQN(ArrayIndexOutOfBounds); got != "java/lang/ArrayIndexOutOfBoundsException" {
		t.Errorf("expected java/lang/ArrayIndexOutOfBoundsException, got %q", got)
	}
}

func TestThrowAndCreateUnwindsToEmptyChain(t *testing.T) {
	registerTrivialClass(FQN(NullPointer))

	th := thread.CreateThread("test/Class", "main")
	m := &classloader.Method{CodeAttrib: classloader.CodeAttrib{MaxLocals: 0, MaxStack: 2}}
	th.PushFrame(frames.NewFrame(m, nil, "test/Class"))

	if err := ThrowAndCreate(th, NullPointer, "boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Top != nil {
		t.Error("expected an uncaught exception to unwind the entire frame chain")
	}
}

func TestThrowExceptionMatchesAnyHandler(t *testing.T) {
	excCls := registerTrivialClass(FQN(Arithmetic))

	th := thread.CreateThread("test/Class", "main")
	m := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			MaxLocals: 0, MaxStack: 2,
			Exceptions: []classloader.CodeException{
				{StartPc: 0, EndPc: 10, HandlerPc: 7, CatchType: 0}, // catch-all
			},
		},
	}
	f := frames.NewFrame(m, nil, "test/Class")
	f.PC = 3
	th.PushFrame(f)

	obj := excObject(excCls)
	ThrowException(th, obj)

	if th.Top != f {
		t.Fatal("expected the handler in the same frame to stop the unwind")
	}
	if f.PC != 7 {
		t.Errorf("expected PC to be set to the handler address 7, got %d", f.PC)
	}
	if f.TOS != 0 || f.OpStack[0].Ref.Ptr != obj.Ptr {
		t.Error("expected the exception reference to be pushed as the handler's sole operand")
	}
}

func TestThrowExceptionSkipsOutOfRangeHandler(t *testing.T) {
	excCls := registerTrivialClass(FQN(Arithmetic))

	th := thread.CreateThread("test/Class", "main")
	m := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			Exceptions: []classloader.CodeException{
				{StartPc: 100, EndPc: 200, HandlerPc: 50, CatchType: 0},
			},
		},
	}
	f := frames.NewFrame(m, nil, "test/Class")
	f.PC = 3 // outside [100,200)
	th.PushFrame(f)

	ThrowException(th, excObject(excCls))

	if th.Top != nil {
		t.Error("expected no handler to match, so the chain unwinds completely")
	}
}

func TestMessageOfExtractsDetailMessage(t *testing.T) {
	cls := registerTrivialClass(FQN(RuntimeKind))
	ref := excObjectWithMessage(cls, "bad things happened")
	if got := MessageOf(ref); got != "bad things happened" {
		t.Errorf("expected detail message round trip, got %q", got)
	}
}

func TestMessageOfOnNullIsEmpty(t *testing.T) {
	if got := MessageOf(frames.NullRef().Ref); got != "" {
		t.Errorf("expected empty message for a null reference, got %q", got)
	}
}
