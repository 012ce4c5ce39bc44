/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package jvm

import (
	"jacobin/classloader"
	"jacobin/frames"
	"jacobin/gc"
	"jacobin/gfunction"
	"jacobin/thread"
	"testing"
)

// registerClass installs cd directly into MethArea, short-circuiting
// classloader.GetOrLoad's disk read so these tests never need a real
// .class file on a test classpath.
func registerClass(cd *classloader.ClData) *classloader.Klass {
	k := &classloader.Klass{Status: classloader.StatusInited, Data: cd}
	classloader.MethArea.Add(cd.Name, k)
	return k
}

// utf8CP builds a constant pool whose CpIndex[1..] are UTF8 entries for
// each string in strs, in order, plus the reserved Dummy at index 0.
func utf8CP(strs ...string) classloader.CPool {
	cp := classloader.CPool{}
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.Dummy})
	for i, s := range strs {
		cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.UTF8, Slot: uint16(i)})
		cp.Utf8Refs = append(cp.Utf8Refs, s)
	}
	return cp
}

func TestRunFrameInvokeStaticAndArithmetic(t *testing.T) {
	gc.Init(nil, 20, false)

	// CP: [0]dummy [1]"test/jvm/Calc" [2]class [3]"add" [4]"(II)I"
	//     [5]nameAndType(add,(II)I) [6]methodref(class,nameAndType)
	cp := utf8CP("test/jvm/Calc", "add", "(II)I")
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.ClassRef, Slot: 0})
	cp.ClassRefs = append(cp.ClassRefs, 1)
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.NameAndType, Slot: 0})
	cp.NameAndTypes = append(cp.NameAndTypes, classloader.NameAndTypeEntry{NameIndex: 2, DescIndex: 3})
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.MethodRef, Slot: 0})
	cp.MethodRefs = append(cp.MethodRefs, classloader.MethodRefEntry{ClassIndex: 4, NameAndType: 5})
	methodRefIdx := 6

	addMeth := &classloader.Method{
		Name: 2, Desc: 3,
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 2, MaxLocals: 2,
			Code: []byte{ILOAD_0, ILOAD_1, IADD, IRETURN},
		},
	}
	cd := &classloader.ClData{
		Name:        "test/jvm/Calc",
		CP:          cp,
		MethodTable: map[string]*classloader.Method{"add(II)I": addMeth},
	}
	cls := registerClass(cd)

	callerMeth := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 2, MaxLocals: 0,
			Code: []byte{BIPUSH, 3, BIPUSH, 4, INVOKESTATIC, byte(methodRefIdx >> 8), byte(methodRefIdx)},
		},
	}
	th := thread.CreateThread("test/jvm/Calc", "caller")
	caller := frames.NewFrame(callerMeth, cls, "test/jvm/Calc")
	th.PushFrame(caller)

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error running caller up to invokestatic: %v", err)
	}
	if th.Top == caller {
		t.Fatal("expected invokestatic to push a new callee frame")
	}
	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error running callee: %v", err)
	}
	if th.Top != caller {
		t.Fatal("expected control to return to the caller frame after the callee's IRETURN")
	}
	if caller.TOS != 0 || caller.OpStack[0].I32 != 7 {
		t.Errorf("expected 3+4=7 on the caller's stack, got TOS=%d stack=%+v", caller.TOS, caller.OpStack)
	}
}

// TestRunFrameInvokeStaticWithLongParam exercises a call whose descriptor
// mixes a wide (long) parameter with a narrow one -- the case where the
// operand stack's one-slot-per-Value model and the locals array's
// wide-doubled model must not be conflated (DESIGN.md, Open Question c).
func TestRunFrameInvokeStaticWithLongParam(t *testing.T) {
	gc.Init(nil, 20, false)

	// CP: [0]dummy [1]"test/jvm/Calc2" [2]"combine" [3]"(JI)J" [4]class
	//     [5]nameAndType(combine,(JI)J) [6]methodref(class,nameAndType)
	//     [7]long constant 100
	cp := utf8CP("test/jvm/Calc2", "combine", "(JI)J")
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.ClassRef, Slot: 0})
	cp.ClassRefs = append(cp.ClassRefs, 1)
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.NameAndType, Slot: 0})
	cp.NameAndTypes = append(cp.NameAndTypes, classloader.NameAndTypeEntry{NameIndex: 2, DescIndex: 3})
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.MethodRef, Slot: 0})
	cp.MethodRefs = append(cp.MethodRefs, classloader.MethodRefEntry{ClassIndex: 4, NameAndType: 5})
	methodRefIdx := 6
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.LongConst, Slot: 0})
	cp.LongConsts = append(cp.LongConsts, 100)
	longConstIdx := 7

	// locals: 0-1 hold the wide long param, 2 holds the int param.
	combineMeth := &classloader.Method{
		Name: 2, Desc: 3,
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 2, MaxLocals: 3,
			Code: []byte{LLOAD_0, ILOAD_2, I2L, LADD, LRETURN},
		},
	}
	cd := &classloader.ClData{
		Name:        "test/jvm/Calc2",
		CP:          cp,
		MethodTable: map[string]*classloader.Method{"combine(JI)J": combineMeth},
	}
	cls := registerClass(cd)

	callerMeth := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 2, MaxLocals: 0,
			Code: []byte{
				LDC2_W, byte(longConstIdx >> 8), byte(longConstIdx),
				BIPUSH, 5,
				INVOKESTATIC, byte(methodRefIdx >> 8), byte(methodRefIdx),
			},
		},
	}
	th := thread.CreateThread("test/jvm/Calc2", "caller")
	caller := frames.NewFrame(callerMeth, cls, "test/jvm/Calc2")
	th.PushFrame(caller)

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error running caller up to invokestatic: %v", err)
	}
	if th.Top == caller {
		t.Fatal("expected invokestatic to push a new callee frame")
	}
	if th.Top.Locals[0].I64 != 100 {
		t.Fatalf("expected the long param 100 to land in local 0, got %+v", th.Top.Locals[0])
	}
	if th.Top.Locals[2].I32 != 5 {
		t.Fatalf("expected the int param 5 to land in local 2 (after the long's two-slot span), got %+v", th.Top.Locals[2])
	}

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error running callee: %v", err)
	}
	if th.Top != caller {
		t.Fatal("expected control to return to the caller frame after the callee's LRETURN")
	}
	if caller.TOS != 0 || caller.OpStack[0].I64 != 105 {
		t.Errorf("expected 100+5=105 on the caller's stack, got TOS=%d stack=%+v", caller.TOS, caller.OpStack)
	}
}

func TestRunFrameNewPutFieldGetField(t *testing.T) {
	gc.Init(nil, 20, false)

	// CP: [0]dummy [1]"test/jvm/Box" [2]"val" [3]"I" [4]class [5]nameAndType [6]fieldref
	cp := utf8CP("test/jvm/Box", "val", "I")
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.ClassRef, Slot: 0})
	cp.ClassRefs = append(cp.ClassRefs, 1)
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.NameAndType, Slot: 0})
	cp.NameAndTypes = append(cp.NameAndTypes, classloader.NameAndTypeEntry{NameIndex: 2, DescIndex: 3})
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.FieldRef, Slot: 0})
	cp.FieldRefs = append(cp.FieldRefs, classloader.FieldRefEntry{ClassIndex: 4, NameAndType: 5})
	classIdx, fieldRefIdx := 4, 6

	cd := &classloader.ClData{
		Name: "test/jvm/Box",
		CP:   cp,
		Fields: []classloader.Field{
			{Name: 2, Desc: 3, IsStatic: false},
		},
	}
	cls := registerClass(cd)

	code := []byte{
		NEW, byte(classIdx >> 8), byte(classIdx),
		DUP,
		BIPUSH, 9,
		PUTFIELD, byte(fieldRefIdx >> 8), byte(fieldRefIdx),
		GETFIELD, byte(fieldRefIdx >> 8), byte(fieldRefIdx),
	}
	meth := &classloader.Method{CodeAttrib: classloader.CodeAttrib{MaxStack: 3, MaxLocals: 0, Code: code}}

	th := thread.CreateThread("test/jvm/Box", "main")
	f := frames.NewFrame(meth, cls, "test/jvm/Box")
	th.PushFrame(f)

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.TOS != 0 || f.OpStack[0].I32 != 9 {
		t.Errorf("expected the field's stored value 9 back on the stack, got TOS=%d stack=%+v", f.TOS, f.OpStack)
	}
}

func TestRunFrameArrayStoreAndLoad(t *testing.T) {
	gc.Init(nil, 20, false)

	meth := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 4, MaxLocals: 0,
			Code: []byte{
				BIPUSH, 5, NEWARRAY, byte(javaTypesIntArrayCode()),
				DUP, BIPUSH, 2, BIPUSH, 42, IASTORE,
				BIPUSH, 2, IALOAD,
			},
		},
	}
	cd := &classloader.ClData{Name: "test/jvm/Arr", MethodTable: map[string]*classloader.Method{}}
	cls := registerClass(cd)

	th := thread.CreateThread("test/jvm/Arr", "main")
	f := frames.NewFrame(meth, cls, "test/jvm/Arr")
	th.PushFrame(f)

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.TOS != 0 || f.OpStack[0].I32 != 42 {
		t.Errorf("expected array[2]=42 to round trip, got TOS=%d stack=%+v", f.TOS, f.OpStack)
	}
}

func TestRunFrameAthrowCaughtBySameFrameHandler(t *testing.T) {
	gc.Init(nil, 20, false)

	cp := utf8CP("test/jvm/Thrower", "java/lang/RuntimeException")
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.ClassRef, Slot: 0})
	cp.ClassRefs = append(cp.ClassRefs, 2) // nameIndex -> CP entry #2, "java/lang/RuntimeException"
	excClassIdx := 3                       // CP entry #3 is the ClassRef itself

	excCls := &classloader.Klass{Status: classloader.StatusInited, Data: &classloader.ClData{Name: "java/lang/RuntimeException"}}
	classloader.MethArea.Add("java/lang/RuntimeException", excCls)

	code := []byte{
		NEW, byte(excClassIdx >> 8), byte(excClassIdx), // 0,1,2
		ATHROW, // 3: throws, should land on the handler below
		NOP, NOP, NOP, // 4,5,6: skipped over
		ICONST_1, // 7: handler target -- proves the jump landed here
	}
	meth := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 2, MaxLocals: 0, Code: code,
			Exceptions: []classloader.CodeException{
				{StartPc: 0, EndPc: 4, HandlerPc: 7, CatchType: 0},
			},
		},
	}
	cd := &classloader.ClData{Name: "test/jvm/Thrower", CP: cp, MethodTable: map[string]*classloader.Method{}}
	cls := registerClass(cd)

	th := thread.CreateThread("test/jvm/Thrower", "main")
	f := frames.NewFrame(meth, cls, "test/jvm/Thrower")
	th.PushFrame(f)

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Top != f {
		t.Fatal("expected the in-frame handler to stop the unwind")
	}
	if f.TOS != 0 || f.OpStack[0].I32 != 1 {
		t.Errorf("expected ICONST_1 at the handler target to have run, got TOS=%d stack=%+v", f.TOS, f.OpStack)
	}
}

func TestRunFrameInvokeStaticDispatchesToNativeMethod(t *testing.T) {
	gc.Init(nil, 20, false)
	gfunction.Register("test/jvm/Native.fixed()I", func(args []frames.Value) (frames.Value, error) {
		return frames.I32(99), nil
	})

	cp := utf8CP("test/jvm/Native", "fixed", "()I")
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.ClassRef, Slot: 0})
	cp.ClassRefs = append(cp.ClassRefs, 1)
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.NameAndType, Slot: 0})
	cp.NameAndTypes = append(cp.NameAndTypes, classloader.NameAndTypeEntry{NameIndex: 2, DescIndex: 3})
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.MethodRef, Slot: 0})
	cp.MethodRefs = append(cp.MethodRefs, classloader.MethodRefEntry{ClassIndex: 4, NameAndType: 5})
	methodRefIdx := 6

	nativeMeth := &classloader.Method{
		Name: 2, Desc: 3,
		AccessFlags: classloader.AccMemberStatic | classloader.AccMemberNative,
	}
	cd := &classloader.ClData{
		Name:        "test/jvm/Native",
		CP:          cp,
		MethodTable: map[string]*classloader.Method{"fixed()I": nativeMeth},
	}
	cls := registerClass(cd)

	meth := &classloader.Method{
		CodeAttrib: classloader.CodeAttrib{
			MaxStack: 1, MaxLocals: 0,
			Code: []byte{INVOKESTATIC, byte(methodRefIdx >> 8), byte(methodRefIdx)},
		},
	}
	th := thread.CreateThread("test/jvm/Native", "main")
	f := frames.NewFrame(meth, cls, "test/jvm/Native")
	th.PushFrame(f)

	if err := runFrame(th); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.TOS != 0 || f.OpStack[0].I32 != 99 {
		t.Errorf("expected the native method's result 99 on the stack, got TOS=%d stack=%+v", f.TOS, f.OpStack)
	}
}

// javaTypesIntArrayCode returns NEWARRAY's atype code for int, matching
// newarrayType's table in run.go without re-exporting it.
func javaTypesIntArrayCode() int { return 10 }
