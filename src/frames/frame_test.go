/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package frames

import (
	"jacobin/classloader"
	"testing"
)

func testMethod(maxLocals, maxStack int) *classloader.Method {
	return &classloader.Method{CodeAttrib: classloader.CodeAttrib{MaxLocals: maxLocals, MaxStack: maxStack}}
}

func TestNewFrameSizing(t *testing.T) {
	f := NewFrame(testMethod(3, 2), nil, "test/Class")
	if len(f.Locals) != 3 {
		t.Errorf("expected 3 locals, got %d", len(f.Locals))
	}
	if len(f.OpStack) != 3 {
		t.Errorf("expected operand stack capacity maxStack+1=3, got %d", len(f.OpStack))
	}
	if f.TOS != -1 {
		t.Errorf("expected an empty stack (TOS=-1), got %d", f.TOS)
	}
}

func TestPushPopPeek(t *testing.T) {
	f := NewFrame(testMethod(0, 4), nil, "test/Class")
	f.Push(I32(10))
	f.Push(I32(20))

	if peeked := f.Peek(); peeked.I32 != 20 {
		t.Errorf("expected peek to return 20, got %d", peeked.I32)
	}
	if popped := f.Pop(); popped.I32 != 20 {
		t.Errorf("expected pop to return 20, got %d", popped.I32)
	}
	if popped := f.Pop(); popped.I32 != 10 {
		t.Errorf("expected pop to return 10, got %d", popped.I32)
	}
	if f.TOS != -1 {
		t.Errorf("expected empty stack after popping both values, TOS=%d", f.TOS)
	}
}

func TestPushFramePackageLevelLinking(t *testing.T) {
	base := NewFrame(testMethod(0, 0), nil, "test/Class")
	callee := NewFrame(testMethod(0, 0), nil, "test/Class")

	result := PushFrame(base, callee)
	if result != callee {
		t.Error("expected PushFrame to return the newly linked frame")
	}
	if base.Next != callee || callee.Prev != base {
		t.Error("expected Prev/Next to link base and callee")
	}
}

func TestPushFrameFirstFrameHasNoPrev(t *testing.T) {
	f := NewFrame(testMethod(0, 0), nil, "test/Class")
	result := PushFrame(nil, f)
	if result != f || f.Prev != nil {
		t.Error("expected the first frame in a chain to have no Prev")
	}
}

func TestPopFrameClearsStateAndUnlinksNext(t *testing.T) {
	base := NewFrame(testMethod(0, 0), nil, "test/Class")
	callee := PushFrame(base, NewFrame(testMethod(1, 1), nil, "test/Class"))

	prev := PopFrame(callee)
	if prev != base {
		t.Error("expected PopFrame to return the predecessor frame")
	}
	if base.Next != nil {
		t.Error("expected the predecessor's Next to be cleared")
	}
	if callee.Locals != nil || callee.OpStack != nil {
		t.Error("expected the popped frame's locals/operand stack to be released")
	}
}

func TestValueIsWide(t *testing.T) {
	cases := []struct {
		v    Value
		wide bool
	}{
		{I32(1), false},
		{F32(1), false},
		{Ref(NullRef().Ref), false},
		{I64(1), true},
		{F64(1), true},
	}
	for _, c := range cases {
		if got := c.v.IsWide(); got != c.wide {
			t.Errorf("Value{Kind:%v}.IsWide(): expected %v, got %v", c.v.Kind, c.wide, got)
		}
	}
}

func TestMarshalParamsStaticPrimitives(t *testing.T) {
	caller := NewFrame(testMethod(0, 3), nil, "test/Caller")
	caller.Push(I32(1))
	caller.Push(I64(2))

	callee := NewFrame(testMethod(4, 0), nil, "test/Callee")
	MarshalParams(caller, callee, "(IJ)V", true)

	if caller.TOS != -1 {
		t.Errorf("expected caller's stack to be fully drained, TOS=%d", caller.TOS)
	}
	if callee.Locals[0].I32 != 1 {
		t.Errorf("expected local 0 to hold the int param, got %+v", callee.Locals[0])
	}
	if callee.Locals[1].I64 != 2 {
		t.Errorf("expected the long param at local 1 (after the wide int slot), got %+v", callee.Locals[1])
	}
}

func TestMarshalParamsInstanceReceiverFirst(t *testing.T) {
	caller := NewFrame(testMethod(0, 2), nil, "test/Caller")
	receiver := Ref(NullRef().Ref)
	caller.Push(receiver)
	caller.Push(I32(42))

	callee := NewFrame(testMethod(2, 0), nil, "test/Callee")
	MarshalParams(caller, callee, "(I)V", false)

	if callee.Locals[0].Kind != KindRef {
		t.Errorf("expected local 0 to hold the receiver, got %+v", callee.Locals[0])
	}
	if callee.Locals[1].I32 != 42 {
		t.Errorf("expected local 1 to hold the int param, got %+v", callee.Locals[1])
	}
}

func TestGenericArithmeticHelpers(t *testing.T) {
	if Add(2, 3) != 5 {
		t.Error("Add(2,3) should be 5")
	}
	if Multiply(2.5, 4.0) != 10.0 {
		t.Error("Multiply(2.5,4.0) should be 10.0")
	}
	if Subtract(int64(10), int64(4)) != 6 {
		t.Error("Subtract(10,4) should be 6")
	}
}
