/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package util

import (
	"reflect"
	"testing"
)

func TestParamSlotCountStaticNoParams(t *testing.T) {
	if n := ParamSlotCount("()V", true); n != 0 {
		t.Errorf("expected 0 slots, got %d", n)
	}
}

func TestParamSlotCountInstanceNoParams(t *testing.T) {
	if n := ParamSlotCount("()V", false); n != 1 {
		t.Errorf("expected 1 slot (receiver only), got %d", n)
	}
}

func TestParamSlotCountMixedPrimitivesAndRefs(t *testing.T) {
	// (IJLjava/lang/String;D[I)V -> int(1) + long(2) + String(1) + double(2) + int[](1) = 7
	n := ParamSlotCount("(IJLjava/lang/String;D[I)V", true)
	if n != 7 {
		t.Errorf("expected 7 slots, got %d", n)
	}
}

func TestParamSlotCountReceiverNotDoubleCounted(t *testing.T) {
	// Open Question (c): the receiver slot is added exactly once here, not
	// again by any caller.
	static := ParamSlotCount("(I)V", true)
	instance := ParamSlotCount("(I)V", false)
	if instance != static+1 {
		t.Errorf("expected instance count to be exactly static+1 (%d), got %d", static+1, instance)
	}
}

func TestParamTypesCollapsesArraysAndRefs(t *testing.T) {
	types := ParamTypes("(I[Ljava/lang/String;[[DJ)V")
	want := []byte{'I', '[', '[', 'J'}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("expected %v, got %v", want, types)
	}
}

func TestParamTypesNoParams(t *testing.T) {
	types := ParamTypes("()V")
	if len(types) != 0 {
		t.Errorf("expected no parameter types, got %v", types)
	}
}

func TestReturnTypeVariants(t *testing.T) {
	cases := map[string]byte{
		"()V":                      'V',
		"()I":                      'I',
		"(I)Ljava/lang/String;":    'L',
		"()[I":                     '[',
		"malformed-no-close-paren": 'V',
	}
	for desc, want := range cases {
		if got := ReturnType(desc); got != want {
			t.Errorf("ReturnType(%q): expected %q, got %q", desc, want, got)
		}
	}
}
