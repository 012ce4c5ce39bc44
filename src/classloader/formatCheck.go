/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021 by Andrew Binstock. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"strconv"
	"strings"
)

// Performs the format check on a fully parsed class. The requirements are listed
// here: https://docs.oracle.com/javase/specs/jvms/se11/html/jvms-4.html#jvms-4.8
// They are:
// 1) must start with 0xCAFEBABE -- this is verified in the parsing, so not done here
// 2) most predefined attributes must be the right length -- verified during parsing
// 3) class must not be truncated or have extra bytes -- verified during parsing
// 4) CP must fulfill all constraints. This is done in this function
// 5) Fields must have valid names, classes, and descriptions. Partially done in
//    the parsing, but entirely done below
func formatCheckClass(cd *ClData) error {
	if err := validateConstantPool(&cd.CP); err != nil {
		return err
	}
	return validateFields(cd)
}

// validates that the CP fits all the requirements enumerated in:
// https://docs.oracle.com/javase/specs/jvms/se11/html/jvms-4.html#jvms-4.4
// some of these checks were performed perforce in the parsing. Here, however,
// we verify them all.
func validateConstantPool(cp *CPool) error {
	if cp.CpIndex[0].Type != Dummy {
		return cfe("missing dummy entry in first slot of constant pool")
	}

	for j := 1; j < len(cp.CpIndex); j++ {
		entry := cp.CpIndex[j]
		switch entry.Type {
		case UTF8:
			whichUtf8 := int(entry.Slot)
			if whichUtf8 < 0 || whichUtf8 >= len(cp.Utf8Refs) {
				return cfe("CP entry #" + strconv.Itoa(j) + " points to invalid UTF8 entry: " +
					strconv.Itoa(whichUtf8))
			}
			utf8string := cp.Utf8Refs[whichUtf8]
			for _, char := range []byte(utf8string) {
				if char == 0x00 || char >= 0xf0 {
					return cfe("UTF8 string for CP entry #" + strconv.Itoa(j) +
						" contains an invalid character")
				}
			}
		case IntConst:
			if int(entry.Slot) >= len(cp.IntConsts) {
				return cfe("integer at CP entry #" + strconv.Itoa(j) +
					" points to an invalid entry in CP intConsts")
			}
		case FloatConst:
			if int(entry.Slot) >= len(cp.Floats) {
				return cfe("float at CP entry #" + strconv.Itoa(j) +
					" points to an invalid entry in CP floats")
			}
		case LongConst:
			if int(entry.Slot) >= len(cp.LongConsts) {
				return cfe("long constant at CP entry #" + strconv.Itoa(j) +
					" points to an invalid entry in CP longConsts")
			}
			if j+1 >= len(cp.CpIndex) || cp.CpIndex[j+1].Type != Dummy {
				return cfe("missing dummy entry after long constant at CP entry #" + strconv.Itoa(j))
			}
			j++
		case DoubleConst:
			if int(entry.Slot) >= len(cp.Doubles) {
				return cfe("double constant at CP entry #" + strconv.Itoa(j) +
					" points to an invalid entry in CP doubles")
			}
			if j+1 >= len(cp.CpIndex) || cp.CpIndex[j+1].Type != Dummy {
				return cfe("missing dummy entry after double constant at CP entry #" + strconv.Itoa(j))
			}
			j++
		case ClassRef:
			if int(entry.Slot) >= len(cp.ClassRefs) {
				return cfe("class ref at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			nameIdx := int(cp.ClassRefs[entry.Slot])
			if nameIdx < 1 || nameIdx >= len(cp.CpIndex) || cp.CpIndex[nameIdx].Type != UTF8 {
				return cfe("class ref at CP entry #" + strconv.Itoa(j) +
					" points to an invalid UTF8 entry")
			}
		case StringConst:
			if int(entry.Slot) >= len(cp.StringRefs) {
				return cfe("string constant at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
		case FieldRef:
			if int(entry.Slot) >= len(cp.FieldRefs) {
				return cfe("field ref at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			fr := cp.FieldRefs[entry.Slot]
			if err := validateClassAndNameType(cp, fr.ClassIndex, fr.NameAndType, j, "field ref"); err != nil {
				return err
			}
		case MethodRef:
			if int(entry.Slot) >= len(cp.MethodRefs) {
				return cfe("method ref at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			mr := cp.MethodRefs[entry.Slot]
			if err := validateClassAndNameType(cp, mr.ClassIndex, mr.NameAndType, j, "method ref"); err != nil {
				return err
			}
			nAndT := cp.NameAndTypes[cp.CpIndex[mr.NameAndType].Slot]
			name, err := fetchUTF8string(cp, int(nAndT.NameIndex))
			if err != nil {
				return cfe("method ref at CP entry #" + strconv.Itoa(j) + " has an invalid name")
			}
			if len(name) > 0 && name[0] == '<' && name != "<init>" {
				return cfe("method ref at CP entry #" + strconv.Itoa(j) +
					" names an invalid method: " + name)
			}
		case Interface:
			if int(entry.Slot) >= len(cp.InterfaceRefs) {
				return cfe("interface method ref at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			ir := cp.InterfaceRefs[entry.Slot]
			if err := validateClassAndNameType(cp, ir.ClassIndex, ir.NameAndType, j, "interface method ref"); err != nil {
				return err
			}
		case NameAndType:
			if int(entry.Slot) >= len(cp.NameAndTypes) {
				return cfe("name-and-type at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			nt := cp.NameAndTypes[entry.Slot]
			if _, err := fetchUTF8string(cp, int(nt.NameIndex)); err != nil {
				return cfe("name-and-type at CP entry #" + strconv.Itoa(j) + " has an invalid name index")
			}
			desc, err := fetchUTF8string(cp, int(nt.DescIndex))
			if err != nil {
				return cfe("name-and-type at CP entry #" + strconv.Itoa(j) + " has an invalid descriptor index")
			}
			if !validDescriptorStart(desc) {
				return cfe("name-and-type at CP entry #" + strconv.Itoa(j) + " has an invalid descriptor: " + desc)
			}
		case MethodHandle:
			if int(entry.Slot) >= len(cp.MethodHandles) {
				return cfe("method handle at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			mh := cp.MethodHandles[entry.Slot]
			if mh.RefKind < 1 || mh.RefKind > 9 {
				return cfe("method handle at CP entry #" + strconv.Itoa(j) +
					" has an invalid reference kind: " + strconv.Itoa(int(mh.RefKind)))
			}
		case MethodType:
			if int(entry.Slot) >= len(cp.MethodTypes) {
				return cfe("method type at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			descIdx := cp.MethodTypes[entry.Slot]
			desc, err := fetchUTF8string(cp, int(descIdx))
			if err != nil || !strings.HasPrefix(desc, "(") {
				return cfe("method type at CP entry #" + strconv.Itoa(j) + " has an invalid descriptor")
			}
		case InvokeDynamic:
			if int(entry.Slot) >= len(cp.InvokeDynamics) {
				return cfe("invokedynamic at CP entry #" + strconv.Itoa(j) + " points to an invalid slot")
			}
			id := cp.InvokeDynamics[entry.Slot]
			if int(id.NameAndType) < 1 || int(id.NameAndType) >= len(cp.CpIndex) ||
				cp.CpIndex[id.NameAndType].Type != NameAndType {
				return cfe("invokedynamic at CP entry #" + strconv.Itoa(j) + " has an invalid name-and-type index")
			}
		default:
			continue
		}
	}
	return nil
}

func validateClassAndNameType(cp *CPool, classIndex, ntIndex uint16, entryNum int, what string) error {
	if int(classIndex) < 1 || int(classIndex) >= len(cp.CpIndex) || cp.CpIndex[classIndex].Type != ClassRef {
		return cfe(what + " at CP entry #" + strconv.Itoa(entryNum) + " has an invalid class index")
	}
	if int(ntIndex) < 1 || int(ntIndex) >= len(cp.CpIndex) || cp.CpIndex[ntIndex].Type != NameAndType {
		return cfe(what + " at CP entry #" + strconv.Itoa(entryNum) + " has an invalid name-and-type index")
	}
	return nil
}

func validDescriptorStart(desc string) bool {
	if len(desc) == 0 {
		return false
	}
	return validateFieldDesc(desc, "") == nil || desc[0] == '('
}

// field entries consist of two string entries, one of which points to the name, the other
// to a string containing a description of the type. Here we check that they fulfill the
// requirements: name doesn't start with a digit or contain a space, and the type begins
// with one of the required letters/symbols.
func validateFields(cd *ClData) error {
	cp := &cd.CP
	for i, f := range cd.Fields {
		fName, err := fetchUTF8string(cp, int(f.Name))
		if err != nil {
			return cfe("invalid index to UTF8 string for field name in field #" + strconv.Itoa(i))
		}
		fDesc, err := fetchUTF8string(cp, int(f.Desc))
		if err != nil {
			return cfe("invalid index for UTF8 string containing description of field " + fName)
		}

		if len(fName) > 0 && fName[0] >= '0' && fName[0] <= '9' {
			return cfe("invalid field name (starts with a digit): " + fName)
		}
		if strings.Contains(fName, " ") {
			return cfe("invalid field name (contains a space): " + fName)
		}
		if err := validateFieldDesc(fDesc, fName); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldDesc(desc string, name string) error {
	if len(desc) == 0 {
		return cfe("field " + name + " has an empty descriptor")
	}
	c := desc[0]
	if !(c == '(' || c == 'B' || c == 'C' || c == 'D' || c == 'F' ||
		c == 'I' || c == 'J' || c == 'L' || c == 'S' || c == 'Z' ||
		c == '[') {
		return cfe("field " + name + " has an invalid description string: " + desc)
	}
	return nil
}
