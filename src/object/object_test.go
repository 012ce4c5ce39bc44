/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package object

import (
	"jacobin/classloader"
	"jacobin/javaTypes"
	"testing"
)

// buildTestClass registers a class with cp[1] = UTF8 fieldName, cp[2] =
// UTF8 fieldDesc, one non-static field, and the given superclass name.
func buildTestClass(name, super, fieldName, fieldDesc string) *classloader.Klass {
	cp := classloader.CPool{}
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.Dummy})
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.UTF8, Slot: 0})
	cp.CpIndex = append(cp.CpIndex, classloader.CpEntry{Type: classloader.UTF8, Slot: 1})
	cp.Utf8Refs = append(cp.Utf8Refs, fieldName, fieldDesc)

	cd := &classloader.ClData{
		Name:       name,
		Superclass: super,
		CP:         cp,
		Fields: []classloader.Field{
			{Name: 1, Desc: 2, IsStatic: false},
		},
	}
	k := &classloader.Klass{Status: classloader.StatusInited, Data: cd}
	classloader.MethArea.Add(name, k)
	return k
}

func TestFieldLayoutSuperFirst(t *testing.T) {
	buildTestClass("test/Base", "", "baseField", "I")
	derived := buildTestClass("test/Derived", "test/Base", "derivedField", "Ljava/lang/String;")

	names := FieldNames(derived)
	want := []string{"baseField", "derivedField"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("expected super-first field order %v, got %v", want, names)
	}

	obj := MakeObject(derived)
	if len(obj.Fields) != 2 {
		t.Fatalf("expected 2 fields on derived instance, got %d", len(obj.Fields))
	}
	if obj.Fields[0].Ftype != "I" {
		t.Errorf("expected inherited int field first, got type %q", obj.Fields[0].Ftype)
	}
	if obj.Fields[1].Fvalue != (*Object)(nil) {
		t.Errorf("expected zeroed reference field, got %#v", obj.Fields[1].Fvalue)
	}
}

func TestMakeArrayZeroValues(t *testing.T) {
	arr := MakeArray(javaTypes.Int, 3)
	if arr.Kind != KindArray || arr.ArrayLength != 3 {
		t.Fatalf("expected a 3-element int array, got %+v", arr)
	}
	for i, f := range arr.Fields {
		if f.Fvalue != int64(0) {
			t.Errorf("element %d: expected zero int64, got %#v", i, f.Fvalue)
		}
	}

	refArr := MakeArray(javaTypes.Ref, 2)
	for i, f := range refArr.Fields {
		if f.Fvalue != (*Object)(nil) {
			t.Errorf("element %d: expected nil reference, got %#v", i, f.Fvalue)
		}
	}
}

func TestReferenceIsNull(t *testing.T) {
	var r Reference
	if !r.IsNull() {
		t.Error("zero-value Reference should be null")
	}
	r.Ptr = &Object{}
	if r.IsNull() {
		t.Error("Reference with a Ptr should not be null")
	}
}

func TestStringRoundTrip(t *testing.T) {
	s := NewStringFromGoString("hello, jvm")
	if got := GoString(s); got != "hello, jvm" {
		t.Errorf("expected round-tripped string %q, got %q", "hello, jvm", got)
	}
}

func TestGoStringOnNilIsEmpty(t *testing.T) {
	if got := GoString(nil); got != "" {
		t.Errorf("expected empty string for nil object, got %q", got)
	}
}
