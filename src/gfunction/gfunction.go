/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package gfunction is the native-method registry (§10.6): a small set of
// java.lang/java.io methods implemented directly in Go rather than as
// bytecode, the way the JDK itself bottoms out certain methods into native
// code. The interpreter consults this registry whenever it resolves a
// method whose AccMemberNative bit is set and whose Code attribute is
// therefore absent.
package gfunction

import (
	"jacobin/frames"
	"jacobin/gc"
	"jacobin/object"
	"math"
	"time"
)

// GFunction is the signature every registered native method has: the
// marshalled argument list (receiver first, if the method is an instance
// method) and the value it returns (Value{} for void).
type GFunction func(args []frames.Value) (frames.Value, error)

var registry = map[string]GFunction{}

// Register installs fn under key, "class/name/slashes.method.descriptor".
func Register(key string, fn GFunction) { registry[key] = fn }

// Lookup returns the native registered for key, if any.
func Lookup(key string) (GFunction, bool) {
	fn, ok := registry[key]
	return fn, ok
}

func init() {
	Register("java/lang/Object.<init>()V", objectInit)
	Register("java/lang/Object.hashCode()I", objectHashCode)
	Register("java/lang/Object.toString()Ljava/lang/String;", objectToString)

	Register("java/lang/Throwable.<init>()V", throwableInitVoid)
	Register("java/lang/Throwable.<init>(Ljava/lang/String;)V", throwableInitMsg)
	Register("java/lang/Throwable.getMessage()Ljava/lang/String;", throwableGetMessage)

	Register("java/lang/String.length()I", stringLength)
	Register("java/lang/String.charAt(I)C", stringCharAt)
	Register("java/lang/String.isEmpty()Z", stringIsEmpty)
	Register("java/lang/String.equals(Ljava/lang/Object;)Z", stringEquals)
	Register("java/lang/String.concat(Ljava/lang/String;)Ljava/lang/String;", stringConcat)
	Register("java/lang/String.hashCode()I", stringHashCode)

	Register("java/lang/Math.abs(I)I", mathAbsInt)
	Register("java/lang/Math.abs(D)D", mathAbsDouble)
	Register("java/lang/Math.max(II)I", mathMaxInt)
	Register("java/lang/Math.min(II)I", mathMinInt)
	Register("java/lang/Math.sqrt(D)D", mathSqrt)

	Register("java/lang/System.currentTimeMillis()J", systemCurrentTimeMillis)
	Register("java/lang/System.nanoTime()J", systemNanoTime)
	Register("java/lang/System.identityHashCode(Ljava/lang/Object;)I", systemIdentityHashCode)
}

func objectInit(args []frames.Value) (frames.Value, error) { return frames.Value{}, nil }

func objectHashCode(args []frames.Value) (frames.Value, error) {
	if len(args) == 0 || args[0].Ref.IsNull() {
		return frames.I32(0), nil
	}
	return frames.I32(int32(uintptr(args[0].Ref.Ptr.Mark.Hash))), nil
}

func objectToString(args []frames.Value) (frames.Value, error) {
	return frames.Ref(gc.NewStringObject("java.lang.Object")), nil
}

func throwableInitVoid(args []frames.Value) (frames.Value, error) {
	setThrowableMessage(args, "")
	return frames.Value{}, nil
}

func throwableInitMsg(args []frames.Value) (frames.Value, error) {
	msg := ""
	if len(args) > 1 && !args[1].Ref.IsNull() {
		msg = object.GoString(args[1].Ref.Ptr)
	}
	setThrowableMessage(args, msg)
	return frames.Value{}, nil
}

func setThrowableMessage(args []frames.Value, msg string) {
	if len(args) == 0 || args[0].Ref.IsNull() {
		return
	}
	recv := args[0].Ref.Ptr
	msgRef := gc.NewStringObject(msg)
	if len(recv.Fields) == 0 {
		recv.Fields = make([]object.Field, 1)
	}
	recv.Fields[0] = object.Field{Ftype: "Ljava/lang/String;", Fvalue: msgRef.Ptr}
}

func throwableGetMessage(args []frames.Value) (frames.Value, error) {
	if len(args) == 0 || args[0].Ref.IsNull() || len(args[0].Ref.Ptr.Fields) == 0 {
		return frames.NullRef(), nil
	}
	strObj, ok := args[0].Ref.Ptr.Fields[0].Fvalue.(*object.Object)
	if !ok || strObj == nil {
		return frames.NullRef(), nil
	}
	return frames.Ref(object.Reference{Ptr: strObj, Kind: object.KindObject}), nil
}

func receiverString(args []frames.Value) string {
	if len(args) == 0 || args[0].Ref.IsNull() {
		return ""
	}
	return object.GoString(args[0].Ref.Ptr)
}

func stringLength(args []frames.Value) (frames.Value, error) {
	return frames.I32(int32(len([]rune(receiverString(args))))), nil
}

func stringCharAt(args []frames.Value) (frames.Value, error) {
	chars := []rune(receiverString(args))
	idx := int(args[1].I32)
	if idx < 0 || idx >= len(chars) {
		return frames.Value{}, stringIndexOutOfBounds(idx)
	}
	return frames.I32(int32(chars[idx])), nil
}

func stringIsEmpty(args []frames.Value) (frames.Value, error) {
	if len(receiverString(args)) == 0 {
		return frames.I32(1), nil
	}
	return frames.I32(0), nil
}

func stringEquals(args []frames.Value) (frames.Value, error) {
	if len(args) < 2 || args[1].Ref.IsNull() {
		return frames.I32(0), nil
	}
	other := object.GoString(args[1].Ref.Ptr)
	if receiverString(args) == other {
		return frames.I32(1), nil
	}
	return frames.I32(0), nil
}

func stringConcat(args []frames.Value) (frames.Value, error) {
	other := ""
	if len(args) > 1 && !args[1].Ref.IsNull() {
		other = object.GoString(args[1].Ref.Ptr)
	}
	return frames.Ref(gc.NewStringObject(receiverString(args) + other)), nil
}

func stringHashCode(args []frames.Value) (frames.Value, error) {
	s := receiverString(args)
	var h int32
	for _, r := range s {
		h = 31*h + int32(r)
	}
	return frames.I32(h), nil
}

func mathAbsInt(args []frames.Value) (frames.Value, error) {
	v := args[0].I32
	if v < 0 {
		v = -v
	}
	return frames.I32(v), nil
}

func mathAbsDouble(args []frames.Value) (frames.Value, error) {
	return frames.F64(math.Abs(args[0].F64)), nil
}

func mathMaxInt(args []frames.Value) (frames.Value, error) {
	if args[0].I32 > args[1].I32 {
		return frames.I32(args[0].I32), nil
	}
	return frames.I32(args[1].I32), nil
}

func mathMinInt(args []frames.Value) (frames.Value, error) {
	if args[0].I32 < args[1].I32 {
		return frames.I32(args[0].I32), nil
	}
	return frames.I32(args[1].I32), nil
}

func mathSqrt(args []frames.Value) (frames.Value, error) {
	return frames.F64(math.Sqrt(args[0].F64)), nil
}

func systemCurrentTimeMillis(args []frames.Value) (frames.Value, error) {
	return frames.I64(time.Now().UnixMilli()), nil
}

func systemNanoTime(args []frames.Value) (frames.Value, error) {
	return frames.I64(time.Now().UnixNano()), nil
}

func systemIdentityHashCode(args []frames.Value) (frames.Value, error) {
	if len(args) == 0 || args[0].Ref.IsNull() {
		return frames.I32(0), nil
	}
	return frames.I32(int32(uintptr(args[0].Ref.Ptr.Mark.Hash))), nil
}

// stringIndexOutOfBoundsErr is a tiny local error type so gfunction does not
// need to import the exceptions package (which would create a cycle back
// through jvm); the jvm package's invoke path translates it into a real
// thrown StringIndexOutOfBoundsException.
type stringIndexOutOfBoundsErr struct{ idx int }

func (e *stringIndexOutOfBoundsErr) Error() string { return "String index out of range" }

func stringIndexOutOfBounds(idx int) error { return &stringIndexOutOfBoundsErr{idx: idx} }

// IsStringIndexOutOfBounds reports whether err originated from
// stringIndexOutOfBounds, letting callers map it to the right exception
// kind without a direct dependency on this package's internal type.
func IsStringIndexOutOfBounds(err error) bool {
	_, ok := err.(*stringIndexOutOfBoundsErr)
	return ok
}
