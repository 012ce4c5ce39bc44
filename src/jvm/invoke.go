/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2022-3 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"fmt"
	"jacobin/classloader"
	"jacobin/exceptions"
	"jacobin/frames"
	"jacobin/gfunction"
	"jacobin/javaTypes"
	"jacobin/thread"
	"jacobin/util"
)

// invokeStatic resolves and calls a static method. No receiver, no
// dynamic dispatch.
func invokeStatic(t *thread.ExecThread, f *frames.Frame, cp *classloader.CPool, idx int) error {
	m, ownerName, err := classloader.ResolveMethod(cp, idx)
	if err != nil {
		return err
	}
	owner, _ := classloader.MethArea.Fetch(ownerName)
	name, desc := methodNameAndDesc(owner, m)
	return dispatch(t, f, owner, m, ownerName, name, desc, true)
}

// invokeSpecial resolves and calls a method without virtual dispatch:
// constructors, private methods, and superclass calls all bind to the
// exact method named at the call site.
func invokeSpecial(t *thread.ExecThread, f *frames.Frame, cp *classloader.CPool, idx int) error {
	m, ownerName, err := classloader.ResolveMethod(cp, idx)
	if err != nil {
		return err
	}
	owner, _ := classloader.MethArea.Fetch(ownerName)
	name, desc := methodNameAndDesc(owner, m)
	return dispatch(t, f, owner, m, ownerName, name, desc, false)
}

// invokeVirtual resolves the call site statically (to learn the method's
// name and descriptor) then re-resolves against the receiver's actual
// runtime class, so an override in a subclass is what actually runs.
// invokeinterface routes here too: once the receiver's class is known,
// interface dispatch is no different from virtual dispatch.
func invokeVirtual(t *thread.ExecThread, f *frames.Frame, cp *classloader.CPool, idx int) error {
	m, ownerName, err := classloader.ResolveMethod(cp, idx)
	if err != nil {
		return err
	}
	owner, _ := classloader.MethArea.Fetch(ownerName)
	name, desc := methodNameAndDesc(owner, m)

	// Operand-stack depth is one slot per parameter (plus the receiver),
	// never util.ParamSlotCount's wide-doubled local-variable-array count
	// (see MarshalParams's doc comment).
	n := len(util.ParamTypes(desc)) + 1
	receiver := f.OpStack[f.TOS-n+1].Ref
	if receiver.IsNull() {
		if err := exceptions.ThrowAndCreate(t, exceptions.NullPointer, "method invocation on null"); err != nil {
			return err
		}
		return nil
	}

	actualMeth, actualOwnerName := m, ownerName
	if receiver.Ptr.Klass != nil {
		if rm, rOwner, err := classloader.FindMethod(receiver.Ptr.Klass, name, desc); err == nil {
			actualMeth, actualOwnerName = rm, rOwner
		}
	}
	actualOwner, _ := classloader.MethArea.Fetch(actualOwnerName)
	return dispatch(t, f, actualOwner, actualMeth, actualOwnerName, name, desc, false)
}

func methodNameAndDesc(owner *classloader.Klass, m *classloader.Method) (string, string) {
	name := classloader.FetchUTF8stringFromCPEntryNumber(&owner.Data.CP, m.Name)
	desc := classloader.FetchUTF8stringFromCPEntryNumber(&owner.Data.CP, m.Desc)
	return name, desc
}

// dispatch routes to either the native-method registry or a freshly built
// bytecode frame, depending on whether m has a Code attribute.
func dispatch(t *thread.ExecThread, f *frames.Frame, owner *classloader.Klass, m *classloader.Method,
	ownerName, name, desc string, isStatic bool) error {

	if m.CodeAttrib.Code == nil && m.AccessFlags&classloader.AccMemberNative != 0 {
		return invokeNative(t, f, ownerName, name, desc, isStatic)
	}

	callee := frames.NewFrame(m, owner, ownerName)
	frames.MarshalParams(f, callee, desc, isStatic)
	t.PushFrame(callee)
	return nil
}

func invokeNative(t *thread.ExecThread, f *frames.Frame, ownerName, name, desc string, isStatic bool) error {
	n := len(util.ParamTypes(desc))
	if !isStatic {
		n++
	}
	args := make([]frames.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}

	key := ownerName + "." + name + desc
	fn, ok := gfunction.Lookup(key)
	if !ok {
		return fmt.Errorf("no native method registered for %s", key)
	}

	result, err := fn(args)
	if err != nil {
		if gfunction.IsStringIndexOutOfBounds(err) {
			return exceptions.ThrowAndCreate(t, exceptions.StringIndexOutOfBounds, err.Error())
		}
		return err
	}

	if util.ReturnType(desc) != javaTypes.DescVoid {
		f.Push(result)
	}
	return nil
}
