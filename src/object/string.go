/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package object

import "jacobin/classloader"

// NewString constructs a java/lang/String instance with the post-JDK9
// compact-string field layout: a char array, a coder byte, a cached hash,
// the COMPACT_STRINGS flag, and a handful of nil placeholder fields that
// real java/lang/String carries but that this implementation's gfunction
// layer never dereferences.
func NewString() *Object {
	s := &Object{Kind: KindObject}
	s.Fields = make([]Field, 12)
	s.Fields[0] = Field{Ftype: "[C", Fvalue: []rune{}}
	s.Fields[1] = Field{Ftype: "B", Fvalue: int64(0)}  // coder
	s.Fields[2] = Field{Ftype: "I", Fvalue: int64(0)}  // hash
	s.Fields[3] = Field{Ftype: "Z", Fvalue: int64(1)}  // COMPACT_STRINGS
	s.Fields[4] = Field{Ftype: "L", Fvalue: nil}
	s.Fields[5] = Field{Ftype: "L", Fvalue: nil}
	s.Fields[6] = Field{Ftype: "L", Fvalue: nil}
	s.Fields[7] = Field{Ftype: "L", Fvalue: nil}
	s.Fields[8] = Field{Ftype: "L", Fvalue: nil}
	s.Fields[9] = Field{Ftype: "L", Fvalue: nil}
	s.Fields[10] = Field{Ftype: "Z", Fvalue: int64(0)} // hashIsZero
	s.Fields[11] = Field{Ftype: "L", Fvalue: nil}       // serialPersistentFields

	s.Mark.Hash = 0
	if k, ok := classloader.MethArea.Fetch("java/lang/String"); ok {
		s.Klass = k
	}
	return s
}

// NewStringFromGoString builds a String object whose char-array field
// holds the runes of str, matching what CONSTANT_String resolution (§4.4)
// expects to find.
func NewStringFromGoString(str string) *Object {
	s := NewString()
	s.Fields[0] = Field{Ftype: "[C", Fvalue: []rune(str)}
	return s
}

// GoString extracts the Go string content back out of a String object's
// char-array field, used by the exception-message printer (§7, §10.7) and
// by gfunction String helpers.
func GoString(s *Object) string {
	if s == nil || len(s.Fields) == 0 {
		return ""
	}
	chars, ok := s.Fields[0].Fvalue.([]rune)
	if !ok {
		return ""
	}
	return string(chars)
}
