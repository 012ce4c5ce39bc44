/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package object is the heap object model: the shape every live reference
// in the interpreter or the GC ever points at. It deliberately carries no
// allocation policy of its own -- gc.New* wraps these constructors and is
// what the interpreter is required to call (§4.4).
package object

import (
	"jacobin/classloader"
	"jacobin/javaTypes"
)

// Kind distinguishes an ordinary object reference from an array reference,
// mirroring the original obj_ref_t's OBJ/ARRAY tag.
type Kind byte

const (
	KindObject Kind = iota
	KindArray
)

// MarkWord carries the bits the GC and the object's identity hash need.
// Gc is flipped PRESENT/ABSENT purely inside the gc package's reference
// table; it is not read here.
type MarkWord struct {
	Hash uintptr
}

// Field is one slot of an object's field array: its descriptor type and
// its current value. Fvalue holds an int64 for integral types, float64/
// float32 for floating types, and a *Object (nil for null) for references.
type Field struct {
	Ftype  string
	Fvalue interface{}
}

// Object is the heap representation of a Java object or array (native_obj
// in the original). Non-array objects carry one Field per declared field,
// inherited fields first (most elder class first, §4.4). Arrays carry one
// Field per element, all of the same Ftype, and ignore Klass's field
// layout entirely: ArrayType/ArrayLength describe them instead.
type Object struct {
	Klass *classloader.Klass
	Mark  MarkWord

	Kind   Kind
	Fields []Field

	// Valid only when Kind == KindArray.
	ArrayType   int // one of the javaTypes primitive codes, or javaTypes.Ref
	ArrayLength int
}

// Reference is the small value the interpreter and GC pass around --
// never a raw *Object. A nil Ptr represents Java null.
type Reference struct {
	Ptr  *Object
	Kind Kind
}

// IsNull reports whether this reference is Java null.
func (r Reference) IsNull() bool {
	return r.Ptr == nil
}

// MakeObject constructs an instance of cls with its field array laid out
// per the class hierarchy (most elder class first), every field zeroed.
// Callers needing GC registration must go through gc.NewObject, not this
// directly -- see §4.4.
func MakeObject(cls *classloader.Klass) *Object {
	obj := &Object{Klass: cls, Kind: KindObject}
	obj.Fields = buildFieldLayout(cls)
	return obj
}

// buildFieldLayout recurses super-first so ancestor fields occupy the
// lowest indices, matching hb_setup_obj_fields in the original.
func buildFieldLayout(cls *classloader.Klass) []Field {
	if cls == nil || cls.Data == nil {
		return nil
	}
	var fields []Field
	if cls.Data.Superclass != "" {
		super, ok := classloader.MethArea.Fetch(cls.Data.Superclass)
		if ok {
			fields = append(fields, buildFieldLayout(super)...)
		}
	}
	for _, f := range cls.Data.Fields {
		if f.IsStatic {
			continue // statics live in the class's own storage, not the instance
		}
		fields = append(fields, Field{
			Ftype:  classloader.FetchUTF8stringFromCPEntryNumber(&cls.Data.CP, f.Desc),
			Fvalue: zeroValueForDescriptor(classloader.FetchUTF8stringFromCPEntryNumber(&cls.Data.CP, f.Desc)),
		})
	}
	return fields
}

// FieldNames returns the names of cls's instance fields in the same
// super-first order buildFieldLayout uses, so an offset returned by
// classloader.ResolveInstanceField indexes correctly into an instance's
// Fields slice.
func FieldNames(cls *classloader.Klass) []string {
	if cls == nil || cls.Data == nil {
		return nil
	}
	var names []string
	if cls.Data.Superclass != "" {
		super, ok := classloader.MethArea.Fetch(cls.Data.Superclass)
		if ok {
			names = append(names, FieldNames(super)...)
		}
	}
	for _, f := range cls.Data.Fields {
		if f.IsStatic {
			continue
		}
		names = append(names, classloader.FetchUTF8stringFromCPEntryNumber(&cls.Data.CP, f.Name))
	}
	return names
}

func zeroValueForDescriptor(desc string) interface{} {
	if desc == "" {
		return int64(0)
	}
	switch desc[0] {
	case javaTypes.DescReference, javaTypes.DescArray:
		return (*Object)(nil)
	case javaTypes.DescDouble:
		return float64(0)
	case javaTypes.DescFloat:
		return float32(0)
	default:
		return int64(0)
	}
}

// MakeArray constructs an array object of the given primitive/reference
// element type and length, every element zeroed. Like MakeObject, GC
// registration is the caller's (gc.NewArray's) responsibility.
func MakeArray(elementType int, length int) *Object {
	obj := &Object{Kind: KindArray, ArrayType: elementType, ArrayLength: length}
	obj.Fields = make([]Field, length)
	zero := zeroValueForArrayType(elementType)
	for i := range obj.Fields {
		obj.Fields[i] = Field{Fvalue: zero}
	}
	return obj
}

func zeroValueForArrayType(elementType int) interface{} {
	switch elementType {
	case javaTypes.Double:
		return float64(0)
	case javaTypes.Float:
		return float32(0)
	case javaTypes.Ref:
		return (*Object)(nil)
	default:
		return int64(0)
	}
}
