/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2022-3 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package jvm is the bytecode execution engine (§4.6): the interpreter
// loop that walks a method's Code array one instruction at a time,
// manipulating the current frame's operand stack and locals, dispatching
// method calls, and handing control to the exceptions package on ATHROW
// or a runtime fault.
package jvm

import (
	"encoding/binary"
	"fmt"
	"jacobin/classloader"
	"jacobin/exceptions"
	"jacobin/frames"
	"jacobin/gc"
	"jacobin/globals"
	"jacobin/javaTypes"
	"jacobin/log"
	"jacobin/object"
	"jacobin/thread"
	"math"
)

func init() {
	classloader.SetClinitRunner(runClinit)
}

// MainThread is the process's single interpreter thread (§5: no
// multi-threading in this implementation).
var MainThread *thread.ExecThread

// StartExec locates className's main([Ljava/lang/String;)V, builds the
// bootstrap frame and thread, initializes the collector, and runs the
// thread to completion.
func StartExec(className string, g *globals.Globals) error {
	cls, err := classloader.GetOrLoad(className)
	if err != nil {
		return err
	}

	main, ok := cls.Data.MethodTable["main([Ljava/lang/String;)V"]
	if !ok {
		return fmt.Errorf("class not found: %s.main()", className)
	}

	t := thread.CreateThread(className, "main")
	MainThread = t
	gc.Init(t, g.GcIntervalMS, g.GcTraceOn)

	f := frames.NewFrame(main, cls, className)
	t.PushFrame(f)

	log.Log("starting execution: "+className, log.CLASS)
	return runThread(t)
}

// runClinit is the hook classloader.InitClass calls to execute a class's
// <clinit>; it runs to completion on a throwaway frame chain rooted at m,
// then discards the result (a <clinit> always returns void).
func runClinit(k *classloader.Klass, m *classloader.Method) error {
	t := thread.CreateThread(k.Data.Name, "<clinit>")
	f := frames.NewFrame(m, k, k.Data.Name)
	t.PushFrame(f)
	return runThread(t)
}

// runThread drives frames off t.Top until the chain empties (normal return
// past the base frame, or an uncaught exception unwound everything).
// Between instructions it gives the collector a chance to run, per §4.8's
// opportunistic pacing.
func runThread(t *thread.ExecThread) error {
	for t.Top != nil {
		if gc.ShouldCollect() {
			gc.Collect()
		}
		if err := runFrame(t); err != nil {
			return err
		}
	}
	return nil
}

func readU16(code []byte, pc int) uint16 {
	return binary.BigEndian.Uint16(code[pc+1 : pc+3])
}

func readS16(code []byte, pc int) int16 {
	return int16(readU16(code, pc))
}

// runFrame executes instructions out of t.Top's Code array until that
// frame either returns/throws past itself (in which case it is popped and
// this call returns to let runThread refetch t.Top) or invokes another
// method (in which case a new frame has been pushed and this call returns
// for the same reason). PC-advance convention: instructions that consume N
// operand bytes advance f.PC by N inside their case; the shared statement
// at the bottom of the loop adds the final +1 to move past the opcode
// byte itself. Branches compute their target as (opcode position +
// offset) and store target-1 so the shared +1 lands exactly on target.
// Invoke cases advance f.PC by the instruction's full length themselves
// and return immediately, bypassing the shared +1 entirely.
func runFrame(t *thread.ExecThread) error {
	f := t.Top
	code := f.Meth.CodeAttrib.Code
	cp := &f.Class.Data.CP

	for f.PC < len(code) {
		op := code[f.PC]
		switch op {
		case NOP:
			// no-op

		case ACONST_NULL:
			f.Push(frames.NullRef())
		case ICONST_M1:
			f.Push(frames.I32(-1))
		case ICONST_0:
			f.Push(frames.I32(0))
		case ICONST_1:
			f.Push(frames.I32(1))
		case ICONST_2:
			f.Push(frames.I32(2))
		case ICONST_3:
			f.Push(frames.I32(3))
		case ICONST_4:
			f.Push(frames.I32(4))
		case ICONST_5:
			f.Push(frames.I32(5))
		case LCONST_0:
			f.Push(frames.I64(0))
		case LCONST_1:
			f.Push(frames.I64(1))
		case FCONST_0:
			f.Push(frames.F32(0))
		case FCONST_1:
			f.Push(frames.F32(1))
		case FCONST_2:
			f.Push(frames.F32(2))
		case DCONST_0:
			f.Push(frames.F64(0))
		case DCONST_1:
			f.Push(frames.F64(1))

		case BIPUSH:
			f.Push(frames.I32(int32(int8(code[f.PC+1]))))
			f.PC++
		case SIPUSH:
			f.Push(frames.I32(int32(readS16(code, f.PC))))
			f.PC += 2

		case LDC:
			idx := int(code[f.PC+1])
			f.PC++
			if err := pushConstant(f, cp, idx); err != nil {
				return err
			}
		case LDC_W, LDC2_W:
			idx := int(readU16(code, f.PC))
			f.PC += 2
			if err := pushConstant(f, cp, idx); err != nil {
				return err
			}

		case ILOAD, FLOAD, ALOAD, LLOAD, DLOAD:
			idx := int(code[f.PC+1])
			f.PC++
			f.Push(f.Locals[idx])
		case ILOAD_0, FLOAD_0, ALOAD_0, LLOAD_0, DLOAD_0:
			f.Push(f.Locals[0])
		case ILOAD_1, FLOAD_1, ALOAD_1, LLOAD_1, DLOAD_1:
			f.Push(f.Locals[1])
		case ILOAD_2, FLOAD_2, ALOAD_2, LLOAD_2, DLOAD_2:
			f.Push(f.Locals[2])
		case ILOAD_3, FLOAD_3, ALOAD_3, LLOAD_3, DLOAD_3:
			f.Push(f.Locals[3])

		case IALOAD, FALOAD, AALOAD, BALOAD, CALOAD, SALOAD, LALOAD, DALOAD:
			idx := f.Pop().I32
			aref := f.Pop().Ref
			if aref.IsNull() {
				if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, "array reference is null"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			arr := aref.Ptr
			if int(idx) < 0 || int(idx) >= arr.ArrayLength {
				if err := exceptions.ThrowAndCreate(t, exceptions.ArrayIndexOutOfBounds, "index out of bounds"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.Push(arrayElementToValue(arr, int(idx)))

		case ISTORE, FSTORE, ASTORE, LSTORE, DSTORE:
			idx := int(code[f.PC+1])
			f.PC++
			f.Locals[idx] = f.Pop()
		case ISTORE_0, FSTORE_0, ASTORE_0, LSTORE_0, DSTORE_0:
			f.Locals[0] = f.Pop()
		case ISTORE_1, FSTORE_1, ASTORE_1, LSTORE_1, DSTORE_1:
			f.Locals[1] = f.Pop()
		case ISTORE_2, FSTORE_2, ASTORE_2, LSTORE_2, DSTORE_2:
			f.Locals[2] = f.Pop()
		case ISTORE_3, FSTORE_3, ASTORE_3, LSTORE_3, DSTORE_3:
			f.Locals[3] = f.Pop()

		case IASTORE, FASTORE, AASTORE, BASTORE, CASTORE, SASTORE, LASTORE, DASTORE:
			val := f.Pop()
			idx := f.Pop().I32
			aref := f.Pop().Ref
			if aref.IsNull() {
				if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, "array reference is null"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			arr := aref.Ptr
			if int(idx) < 0 || int(idx) >= arr.ArrayLength {
				if err := exceptions.ThrowAndCreate(t, exceptions.ArrayIndexOutOfBounds, "index out of bounds"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			storeArrayElement(arr, int(idx), val)

		case POP:
			f.Pop()
		case POP2:
			f.Pop()
			f.Pop()
		case DUP:
			f.Push(f.Peek())
		case DUP_X1:
			top, next := f.Pop(), f.Pop()
			f.Push(top)
			f.Push(next)
			f.Push(top)
		case DUP_X2:
			top, next, third := f.Pop(), f.Pop(), f.Pop()
			f.Push(top)
			f.Push(third)
			f.Push(next)
			f.Push(top)
		case DUP2:
			// computational-type-2 aware: a wide top value only needs
			// duplicating once (it already occupies a single Value slot,
			// per §9's sum-type design), matching DUP's behavior; a pair
			// of category-1 values duplicates both, per §4.6.
			top := f.Pop()
			if top.IsWide() {
				f.Push(top)
				f.Push(top)
			} else {
				next := f.Pop()
				f.Push(next)
				f.Push(top)
				f.Push(next)
				f.Push(top)
			}
		case DUP2_X1:
			top := f.Pop()
			if top.IsWide() {
				next := f.Pop()
				f.Push(top)
				f.Push(next)
				f.Push(top)
			} else {
				next, third := f.Pop(), f.Pop()
				f.Push(next)
				f.Push(top)
				f.Push(third)
				f.Push(next)
				f.Push(top)
			}
		case DUP2_X2:
			top := f.Pop()
			if top.IsWide() {
				next := f.Pop()
				f.Push(top)
				f.Push(next)
				f.Push(top)
			} else {
				next, third, fourth := f.Pop(), f.Pop(), f.Pop()
				f.Push(next)
				f.Push(top)
				f.Push(fourth)
				f.Push(third)
				f.Push(next)
				f.Push(top)
			}
		case SWAP:
			top, next := f.Pop(), f.Pop()
			f.Push(top)
			f.Push(next)

		case IADD:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(frames.Add(a, b)))
		case LADD:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I64(frames.Add(a, b)))
		case FADD:
			b, a := f.Pop().F32, f.Pop().F32
			f.Push(frames.F32(frames.Add(a, b)))
		case DADD:
			b, a := f.Pop().F64, f.Pop().F64
			f.Push(frames.F64(frames.Add(a, b)))
		case ISUB:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(frames.Subtract(a, b)))
		case LSUB:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I64(frames.Subtract(a, b)))
		case FSUB:
			b, a := f.Pop().F32, f.Pop().F32
			f.Push(frames.F32(frames.Subtract(a, b)))
		case DSUB:
			b, a := f.Pop().F64, f.Pop().F64
			f.Push(frames.F64(frames.Subtract(a, b)))
		case IMUL:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(frames.Multiply(a, b)))
		case LMUL:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I64(frames.Multiply(a, b)))
		case FMUL:
			b, a := f.Pop().F32, f.Pop().F32
			f.Push(frames.F32(frames.Multiply(a, b)))
		case DMUL:
			b, a := f.Pop().F64, f.Pop().F64
			f.Push(frames.F64(frames.Multiply(a, b)))
		case IDIV:
			b, a := f.Pop().I32, f.Pop().I32
			if b == 0 {
				if err := exceptions.ThrowAndCreate(t, exceptions.Arithmetic, "divide by zero"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.Push(frames.I32(a / b))
		case LDIV:
			b, a := f.Pop().I64, f.Pop().I64
			if b == 0 {
				if err := exceptions.ThrowAndCreate(t, exceptions.Arithmetic, "divide by zero"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.Push(frames.I64(a / b))
		case FDIV:
			b, a := f.Pop().F32, f.Pop().F32
			f.Push(frames.F32(a / b))
		case DDIV:
			b, a := f.Pop().F64, f.Pop().F64
			f.Push(frames.F64(a / b))
		case IREM:
			b, a := f.Pop().I32, f.Pop().I32
			if b == 0 {
				if err := exceptions.ThrowAndCreate(t, exceptions.Arithmetic, "divide by zero"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.Push(frames.I32(a % b))
		case LREM:
			b, a := f.Pop().I64, f.Pop().I64
			if b == 0 {
				if err := exceptions.ThrowAndCreate(t, exceptions.Arithmetic, "divide by zero"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.Push(frames.I64(a % b))
		case FREM:
			b, a := f.Pop().F32, f.Pop().F32
			f.Push(frames.F32(float32(math.Mod(float64(a), float64(b)))))
		case DREM:
			b, a := f.Pop().F64, f.Pop().F64
			f.Push(frames.F64(math.Mod(a, b)))
		case INEG:
			f.Push(frames.I32(-f.Pop().I32))
		case LNEG:
			f.Push(frames.I64(-f.Pop().I64))
		case FNEG:
			f.Push(frames.F32(-f.Pop().F32))
		case DNEG:
			f.Push(frames.F64(-f.Pop().F64))

		case ISHL:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(a << (uint32(b) & 0x1F)))
		case LSHL:
			b, a := f.Pop().I32, f.Pop().I64
			f.Push(frames.I64(a << (uint64(b) & 0x3F)))
		case ISHR:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(a >> (uint32(b) & 0x1F)))
		case LSHR:
			b, a := f.Pop().I32, f.Pop().I64
			f.Push(frames.I64(a >> (uint64(b) & 0x3F)))
		case IUSHR:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(int32(uint32(a) >> (uint32(b) & 0x1F))))
		case LUSHR:
			b, a := f.Pop().I32, f.Pop().I64
			f.Push(frames.I64(int64(uint64(a) >> (uint64(b) & 0x3F))))
		case IAND:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(a & b))
		case LAND:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I64(a & b))
		case IOR:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(a | b))
		case LOR:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I64(a | b))
		case IXOR:
			b, a := f.Pop().I32, f.Pop().I32
			f.Push(frames.I32(a ^ b))
		case LXOR:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I64(a ^ b))

		case IINC:
			idx := int(code[f.PC+1])
			delta := int32(int8(code[f.PC+2]))
			f.PC += 2
			v := f.Locals[idx]
			f.Locals[idx] = frames.I32(v.I32 + delta)

		case I2L:
			f.Push(frames.I64(int64(f.Pop().I32)))
		case I2F:
			f.Push(frames.F32(float32(f.Pop().I32)))
		case I2D:
			f.Push(frames.F64(float64(f.Pop().I32)))
		case L2I:
			f.Push(frames.I32(int32(f.Pop().I64)))
		case L2F:
			f.Push(frames.F32(float32(f.Pop().I64)))
		case L2D:
			f.Push(frames.F64(float64(f.Pop().I64)))
		case F2I:
			f.Push(frames.I32(int32(math.Trunc(float64(f.Pop().F32)))))
		case F2L:
			f.Push(frames.I64(int64(math.Trunc(float64(f.Pop().F32)))))
		case F2D:
			f.Push(frames.F64(float64(f.Pop().F32)))
		case D2I:
			f.Push(frames.I32(int32(math.Trunc(f.Pop().F64))))
		case D2L:
			f.Push(frames.I64(int64(math.Trunc(f.Pop().F64))))
		case D2F:
			f.Push(frames.F32(float32(f.Pop().F64)))
		case I2B:
			f.Push(frames.I32(int32(int8(f.Pop().I32))))
		case I2C:
			f.Push(frames.I32(int32(uint16(f.Pop().I32))))
		case I2S:
			f.Push(frames.I32(int32(int16(f.Pop().I32))))

		case LCMP:
			b, a := f.Pop().I64, f.Pop().I64
			f.Push(frames.I32(cmp3(a, b)))
		case FCMPL, FCMPG:
			b, a := f.Pop().F32, f.Pop().F32
			f.Push(frames.I32(cmpFloat(float64(a), float64(b), op == FCMPG)))
		case DCMPL, DCMPG:
			b, a := f.Pop().F64, f.Pop().F64
			f.Push(frames.I32(cmpFloat(a, b, op == DCMPG)))

		case IFEQ, IFNE, IFLT, IFGE, IFGT, IFLE:
			v := f.Pop().I32
			if branchTakenUnary(op, v) {
				f.PC = f.PC + int(readS16(code, f.PC)) - 1
			} else {
				f.PC += 2
			}
		case IF_ICMPEQ, IF_ICMPNE, IF_ICMPLT, IF_ICMPGE, IF_ICMPGT, IF_ICMPLE:
			b, a := f.Pop().I32, f.Pop().I32
			if branchTakenBinary(op, a, b) {
				f.PC = f.PC + int(readS16(code, f.PC)) - 1
			} else {
				f.PC += 2
			}
		case IF_ACMPEQ, IF_ACMPNE:
			b, a := f.Pop().Ref, f.Pop().Ref
			eq := a.Ptr == b.Ptr
			if (op == IF_ACMPEQ) == eq {
				f.PC = f.PC + int(readS16(code, f.PC)) - 1
			} else {
				f.PC += 2
			}
		case IFNULL, IFNONNULL:
			v := f.Pop().Ref
			if (op == IFNULL) == v.IsNull() {
				f.PC = f.PC + int(readS16(code, f.PC)) - 1
			} else {
				f.PC += 2
			}
		case GOTO:
			f.PC = f.PC + int(readS16(code, f.PC)) - 1
		case GOTO_W:
			f.PC = f.PC + int(int32(binary.BigEndian.Uint32(code[f.PC+1:f.PC+5]))) - 1

		case IRETURN, FRETURN, ARETURN, LRETURN, DRETURN:
			v := f.Pop()
			t.PopFrame()
			if t.Top != nil {
				t.Top.Push(v)
			}
			return nil
		case RETURN:
			t.PopFrame()
			return nil

		case GETSTATIC:
			idx := int(readU16(code, f.PC))
			f.PC += 2
			slot, err := classloader.ResolveStaticField(cp, idx)
			if err != nil {
				return err
			}
			f.Push(staticToValue(slot))
		case PUTSTATIC:
			idx := int(readU16(code, f.PC))
			f.PC += 2
			slot, err := classloader.ResolveStaticField(cp, idx)
			if err != nil {
				return err
			}
			valueToStatic(slot, f.Pop())

		case GETFIELD:
			idx := int(readU16(code, f.PC))
			objRef := f.Pop().Ref
			if objRef.IsNull() {
				if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, "field access on null"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.PC += 2
			names := object.FieldNames(objRef.Ptr.Klass)
			offset, err := classloader.ResolveInstanceField(cp, idx, names)
			if err != nil {
				return err
			}
			f.Push(fieldToValue(objRef.Ptr.Fields[offset]))
		case PUTFIELD:
			idx := int(readU16(code, f.PC))
			val := f.Pop()
			objRef := f.Pop().Ref
			if objRef.IsNull() {
				if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, "field access on null"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.PC += 2
			names := object.FieldNames(objRef.Ptr.Klass)
			offset, err := classloader.ResolveInstanceField(cp, idx, names)
			if err != nil {
				return err
			}
			valueToField(&objRef.Ptr.Fields[offset], val)

		case INVOKESTATIC:
			idx := int(readU16(code, f.PC))
			f.PC += 3
			if err := invokeStatic(t, f, cp, idx); err != nil {
				return err
			}
			return nil
		case INVOKESPECIAL:
			idx := int(readU16(code, f.PC))
			f.PC += 3
			if err := invokeSpecial(t, f, cp, idx); err != nil {
				return err
			}
			return nil
		case INVOKEVIRTUAL:
			idx := int(readU16(code, f.PC))
			f.PC += 3
			if err := invokeVirtual(t, f, cp, idx); err != nil {
				return err
			}
			return nil
		case INVOKEINTERFACE:
			idx := int(readU16(code, f.PC))
			f.PC += 5 // index(2) + count(1) + reserved(1), plus the opcode byte
			if err := invokeVirtual(t, f, cp, idx); err != nil {
				return err
			}
			return nil

		case NEW:
			idx := int(readU16(code, f.PC))
			f.PC += 2
			cls, err := classloader.ResolveClass(cp, idx)
			if err != nil {
				return err
			}
			f.Push(frames.Ref(gc.NewObject(cls)))

		case NEWARRAY:
			atype := int(code[f.PC+1])
			count := f.Pop().I32
			if count < 0 {
				if err := exceptions.ThrowAndCreate(t, exceptions.NegativeArraySize, "negative array size"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.PC++
			f.Push(frames.Ref(gc.NewArray(newarrayType(atype), int(count))))
		case ANEWARRAY:
			idx := int(readU16(code, f.PC))
			count := f.Pop().I32
			if count < 0 {
				if err := exceptions.ThrowAndCreate(t, exceptions.NegativeArraySize, "negative array size"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.PC += 2
			if _, err := classloader.ResolveClass(cp, idx); err != nil {
				return err
			}
			f.Push(frames.Ref(gc.NewArray(javaTypes.Ref, int(count))))
		case ARRAYLENGTH:
			aref := f.Pop().Ref
			if aref.IsNull() {
				if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, "arraylength on null"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			f.Push(frames.I32(int32(aref.Ptr.ArrayLength)))

		case ATHROW:
			ref := f.Pop().Ref
			if ref.IsNull() {
				if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, ""); err != nil {
					return err
				}
			} else {
				exceptions.ThrowException(t, ref)
			}
			if t.Top != f {
				return nil
			}
			continue

		case CHECKCAST:
			f.PC += 2 // resolution intentionally elided -- no subtype table (§4.6 non-goal)
		case INSTANCEOF:
			f.PC += 2
			v := f.Pop().Ref
			if v.IsNull() {
				f.Push(frames.I32(0))
			} else {
				f.Push(frames.I32(1))
			}
		case MONITORENTER, MONITOREXIT:
			f.Pop() // single-threaded interpreter: synchronization is a no-op (§5 non-goal)

		case MULTIANEWARRAY:
			dimensions := int(code[f.PC+3])
			counts := make([]int, dimensions)
			negative := false
			for i := dimensions - 1; i >= 0; i-- {
				c := f.Pop().I32
				if c < 0 {
					negative = true
				}
				counts[i] = int(c)
			}
			if negative {
				if err := exceptions.ThrowAndCreate(t, exceptions.NegativeArraySize, "negative array size"); err != nil {
					return err
				}
				if t.Top != f {
					return nil
				}
				continue
			}
			name, err := classloader.ClassNameAt(cp, int(readU16(code, f.PC)))
			if err != nil {
				return err
			}
			f.PC += 3
			aref, err := instantiateMultiArray(leafElementType(name), counts)
			if err != nil {
				return err
			}
			f.Push(frames.Ref(aref))

		default:
			return fmt.Errorf("unimplemented or unsupported bytecode 0x%02X at PC %d in %s.%s",
				op, f.PC, f.ClName, methodName(f))
		}
		f.PC++
	}

	// fell off the end of the code array without an explicit return --
	// should not happen for verified bytecode; treat as a void return.
	t.PopFrame()
	return nil
}

func methodName(f *frames.Frame) string {
	return classloader.FetchUTF8stringFromCPEntryNumber(&f.Class.Data.CP, f.Meth.Name)
}

func cmp3(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func cmpFloat(a, b float64, nanGreater bool) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		if nanGreater {
			return 1
		}
		return -1
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func branchTakenUnary(op byte, v int32) bool {
	switch op {
	case IFEQ:
		return v == 0
	case IFNE:
		return v != 0
	case IFLT:
		return v < 0
	case IFGE:
		return v >= 0
	case IFGT:
		return v > 0
	case IFLE:
		return v <= 0
	}
	return false
}

func branchTakenBinary(op byte, a, b int32) bool {
	switch op {
	case IF_ICMPEQ:
		return a == b
	case IF_ICMPNE:
		return a != b
	case IF_ICMPLT:
		return a < b
	case IF_ICMPGE:
		return a >= b
	case IF_ICMPGT:
		return a > b
	case IF_ICMPLE:
		return a <= b
	}
	return false
}

func newarrayType(atype int) int {
	switch atype {
	case 4:
		return javaTypes.Boolean
	case 5:
		return javaTypes.Char
	case 6:
		return javaTypes.Float
	case 7:
		return javaTypes.Double
	case 8:
		return javaTypes.Byte
	case 9:
		return javaTypes.Short
	case 10:
		return javaTypes.Int
	case 11:
		return javaTypes.Long
	default:
		return javaTypes.Int
	}
}

// leafElementType returns the innermost element type named by an array
// class descriptor such as "[[I" or "[Ljava/lang/String;", used by
// MULTIANEWARRAY to determine what the deepest dimension's arrays hold.
func leafElementType(name string) int {
	i := 0
	for i < len(name) && name[i] == javaTypes.DescArray {
		i++
	}
	if i >= len(name) {
		return javaTypes.Ref
	}
	switch name[i] {
	case javaTypes.DescBoolean:
		return javaTypes.Boolean
	case javaTypes.DescChar:
		return javaTypes.Char
	case javaTypes.DescFloat:
		return javaTypes.Float
	case javaTypes.DescDouble:
		return javaTypes.Double
	case javaTypes.DescByte:
		return javaTypes.Byte
	case javaTypes.DescShort:
		return javaTypes.Short
	case javaTypes.DescInt:
		return javaTypes.Int
	case javaTypes.DescLong:
		return javaTypes.Long
	default:
		return javaTypes.Ref
	}
}

func arrayElementToValue(arr *object.Object, idx int) frames.Value {
	fv := arr.Fields[idx].Fvalue
	switch arr.ArrayType {
	case javaTypes.Float:
		return frames.F32(fv.(float32))
	case javaTypes.Double:
		return frames.F64(fv.(float64))
	case javaTypes.Long:
		return frames.I64(fv.(int64))
	case javaTypes.Ref:
		obj, _ := fv.(*object.Object)
		if obj == nil {
			return frames.NullRef()
		}
		return frames.Ref(object.Reference{Ptr: obj, Kind: object.KindObject})
	default:
		return frames.I32(int32(fv.(int64)))
	}
}

func storeArrayElement(arr *object.Object, idx int, v frames.Value) {
	switch arr.ArrayType {
	case javaTypes.Float:
		arr.Fields[idx].Fvalue = v.F32
	case javaTypes.Double:
		arr.Fields[idx].Fvalue = v.F64
	case javaTypes.Long:
		arr.Fields[idx].Fvalue = v.I64
	case javaTypes.Ref:
		if v.Ref.IsNull() {
			arr.Fields[idx].Fvalue = (*object.Object)(nil)
		} else {
			arr.Fields[idx].Fvalue = v.Ref.Ptr
		}
	default:
		arr.Fields[idx].Fvalue = int64(v.I32)
	}
}

// pushConstant implements LDC/LDC_W/LDC2_W: resolve the CP entry at idx and
// push the matching Value kind.
func pushConstant(f *frames.Frame, cp *classloader.CPool, idx int) error {
	entry := cp.CpIndex[idx]
	switch entry.Type {
	case classloader.IntConst:
		f.Push(frames.I32(cp.IntConsts[entry.Slot]))
	case classloader.FloatConst:
		f.Push(frames.F32(cp.Floats[entry.Slot]))
	case classloader.LongConst:
		f.Push(frames.I64(cp.LongConsts[entry.Slot]))
	case classloader.DoubleConst:
		f.Push(frames.F64(cp.Doubles[entry.Slot]))
	case classloader.StringConst:
		strIdx := int(cp.StringRefs[entry.Slot])
		s := classloader.FetchUTF8stringFromCPEntryNumber(cp, uint16(strIdx))
		f.Push(frames.Ref(gc.NewStringObject(s)))
	case classloader.ClassRef:
		if _, err := classloader.ResolveClass(cp, idx); err != nil {
			return err
		}
		f.Push(frames.NullRef()) // java.lang.Class objects are not modeled (§1 non-goal)
	default:
		return fmt.Errorf("LDC: unsupported constant-pool entry type %d", entry.Type)
	}
	return nil
}

func staticToValue(slot *classloader.StaticSlot) frames.Value {
	switch v := slot.Fvalue.(type) {
	case int64:
		if len(slot.Ftype) > 0 && slot.Ftype[0] == javaTypes.DescLong {
			return frames.I64(v)
		}
		return frames.I32(int32(v))
	case float32:
		return frames.F32(v)
	case float64:
		return frames.F64(v)
	case *object.Object:
		if v == nil {
			return frames.NullRef()
		}
		return frames.Ref(object.Reference{Ptr: v, Kind: object.KindObject})
	case string:
		return frames.Ref(gc.NewStringObject(v))
	default:
		return frames.NullRef()
	}
}

func valueToStatic(slot *classloader.StaticSlot, v frames.Value) {
	switch v.Kind {
	case frames.KindI32:
		slot.Fvalue = int64(v.I32)
	case frames.KindI64:
		slot.Fvalue = v.I64
	case frames.KindF32:
		slot.Fvalue = v.F32
	case frames.KindF64:
		slot.Fvalue = v.F64
	case frames.KindRef:
		if v.Ref.IsNull() {
			slot.Fvalue = (*object.Object)(nil)
		} else {
			slot.Fvalue = v.Ref.Ptr
		}
	}
}

func fieldToValue(f object.Field) frames.Value {
	switch v := f.Fvalue.(type) {
	case int64:
		if len(f.Ftype) > 0 && f.Ftype[0] == javaTypes.DescLong {
			return frames.I64(v)
		}
		return frames.I32(int32(v))
	case float32:
		return frames.F32(v)
	case float64:
		return frames.F64(v)
	case *object.Object:
		if v == nil {
			return frames.NullRef()
		}
		return frames.Ref(object.Reference{Ptr: v, Kind: object.KindObject})
	default:
		return frames.NullRef()
	}
}

func valueToField(f *object.Field, v frames.Value) {
	switch v.Kind {
	case frames.KindI32:
		f.Fvalue = int64(v.I32)
	case frames.KindI64:
		f.Fvalue = v.I64
	case frames.KindF32:
		f.Fvalue = v.F32
	case frames.KindF64:
		f.Fvalue = v.F64
	case frames.KindRef:
		if v.Ref.IsNull() {
			f.Fvalue = (*object.Object)(nil)
		} else {
			f.Fvalue = v.Ref.Ptr
		}
	}
}
