/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2022-3 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"jacobin/classloader"
	"jacobin/gc"
	"jacobin/javaTypes"
	"jacobin/object"
)

// instantiateClass resolves className (loading, prepping, and running
// <clinit> if this is the class's first use, via classloader.GetOrLoad)
// and allocates a zeroed instance of it through the collector. It is the
// by-name counterpart to the NEW opcode's by-constant-pool-index path,
// used wherever a native method (gfunction) needs to construct an object
// given only a class name rather than a resolved constant-pool entry.
func instantiateClass(className string) (object.Reference, error) {
	cls, err := classloader.GetOrLoad(className)
	if err != nil {
		return object.Reference{}, err
	}
	return gc.NewObject(cls), nil
}

// instantiateMultiArray builds a dims-dimensional array of elementType,
// recursing super-to-sub the way MULTIANEWARRAY's nested-array semantics
// require: the outermost array holds references to (dims[1:]-shaped)
// arrays, all the way down to a leaf array of elementType itself.
// Trailing dimensions of length 0 truncate the nesting early (a Java
// array literal may specify fewer initialized dimensions than its type
// has brackets), matching the class file's multianewarray semantics.
func instantiateMultiArray(elementType int, dims []int) (object.Reference, error) {
	if len(dims) == 1 {
		return gc.NewArray(elementType, dims[0]), nil
	}

	top := gc.NewArray(javaTypes.Ref, dims[0])
	if dims[0] == 0 {
		return top, nil
	}
	for i := 0; i < dims[0]; i++ {
		sub, err := instantiateMultiArray(elementType, dims[1:])
		if err != nil {
			return object.Reference{}, err
		}
		top.Ptr.Fields[i].Fvalue = sub.Ptr
	}
	return top, nil
}
