/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021 by Andrew Binstock. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"fmt"
	"jacobin/globals"
	"jacobin/log"
	"os"
	"strconv"
)

// parse reads in a class file, parses it, and returns a ready-to-register
// ClData. Parsing is strictly serial and top-down per §4.1: magic,
// minor/major version, constant-pool count, constant pool, access flags,
// this, super, interfaces, fields, methods, attributes. Failures abort
// with a diagnostic; no partial class is ever returned.
func parse(rawBytes []byte) (*ClData, error) {
	cd := &ClData{MethodTable: make(map[string]*Method), StaticValues: make(map[string]*StaticSlot)}

	if err := parseMagicNumber(rawBytes); err != nil {
		return nil, err
	}

	if err := parseJavaVersionNumber(rawBytes); err != nil {
		return nil, err
	}

	pos, err := parseConstantPool(rawBytes, &cd.CP)
	if err != nil {
		return nil, err
	}

	pos, err = parseAccessFlags(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	pos, err = parseClassName(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	pos, err = parseSuperClassName(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	pos, err = parseInterfaces(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	pos, err = parseFields(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	pos, err = parseMethods(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	_, err = parseClassAttributes(rawBytes, pos, cd)
	if err != nil {
		return nil, err
	}

	if err := formatCheckClass(cd); err != nil {
		return nil, err
	}

	for i := range cd.Methods {
		m := &cd.Methods[i]
		name := FetchUTF8stringFromCPEntryNumber(&cd.CP, m.Name)
		desc := FetchUTF8stringFromCPEntryNumber(&cd.CP, m.Desc)
		cd.MethodTable[name+desc] = m
	}

	return cd, nil
}

// all bytecode files start with 0xCAFEBABE (it was the 90s!); this checks for that.
func parseMagicNumber(bytes []byte) error {
	if len(bytes) < 4 {
		return cfe("invalid magic number")
	} else if bytes[0] != 0xCA || bytes[1] != 0xFE || bytes[2] != 0xBA || bytes[3] != 0xBE {
		return cfe("invalid magic number")
	}
	return nil
}

// get the Java version number used in creating this class file. If it's higher than the
// version this implementation presently supports, report an error.
func parseJavaVersionNumber(bytes []byte) error {
	version, err := intFrom2Bytes(bytes, 6)
	if err != nil {
		return err
	}

	if version > globals.GetInstance().MaxJavaVersionRaw {
		errMsg := "unsupported class file version; this implementation supports only through Java " +
			strconv.Itoa(globals.GetInstance().MaxJavaVersion)
		return cfe(errMsg)
	}

	log.Log("class file version: "+strconv.Itoa(version), log.FINEST)
	return nil
}

// parseConstantPool reads the constant_pool_count and then each constant
// pool entry in turn, building the CPool's tag index and per-tag side
// tables. Returns the byte offset immediately after the pool (the
// access_flags field).
func parseConstantPool(bytes []byte, cp *CPool) (int, error) {
	count, err := intFrom2Bytes(bytes, 8)
	if err != nil || count <= 1 {
		return 0, cfe("invalid number of entries in constant pool: " + strconv.Itoa(count))
	}
	log.Log("constant pool entries: "+strconv.Itoa(count), log.FINEST)

	cp.CpIndex = make([]CpEntry, count)
	cp.CpIndex[0] = CpEntry{Type: Dummy}

	pos := 10
	for i := 1; i < count; i++ {
		tag := bytes[pos]
		pos++
		switch tag {
		case UTF8:
			length, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid UTF8 length at CP entry #" + strconv.Itoa(i))
			}
			pos += 2
			str := string(bytes[pos : pos+length])
			pos += length
			cp.CpIndex[i] = CpEntry{Type: UTF8, Slot: uint16(len(cp.Utf8Refs))}
			cp.Utf8Refs = append(cp.Utf8Refs, str)
		case IntConst:
			v, err := intFrom4Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid integer constant at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: IntConst, Slot: uint16(len(cp.IntConsts))}
			cp.IntConsts = append(cp.IntConsts, int32(v))
		case FloatConst:
			v, err := intFrom4Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid float constant at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: FloatConst, Slot: uint16(len(cp.Floats))}
			cp.Floats = append(cp.Floats, bitsToFloat32(uint32(v)))
		case LongConst:
			hi, err := intFrom4Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid long constant at CP entry #" + strconv.Itoa(i))
			}
			lo, err := intFrom4Bytes(bytes, pos+4)
			if err != nil {
				return 0, cfe("invalid long constant at CP entry #" + strconv.Itoa(i))
			}
			pos += 8
			val := int64(uint64(uint32(hi))<<32 | uint64(uint32(lo)))
			cp.CpIndex[i] = CpEntry{Type: LongConst, Slot: uint16(len(cp.LongConsts))}
			cp.LongConsts = append(cp.LongConsts, val)
			i++ // long/double occupy two CP slots; second is a dead placeholder
			if i < count {
				cp.CpIndex[i] = CpEntry{Type: Dummy}
			}
		case DoubleConst:
			hi, err := intFrom4Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid double constant at CP entry #" + strconv.Itoa(i))
			}
			lo, err := intFrom4Bytes(bytes, pos+4)
			if err != nil {
				return 0, cfe("invalid double constant at CP entry #" + strconv.Itoa(i))
			}
			pos += 8
			bits := uint64(uint32(hi))<<32 | uint64(uint32(lo))
			cp.CpIndex[i] = CpEntry{Type: DoubleConst, Slot: uint16(len(cp.Doubles))}
			cp.Doubles = append(cp.Doubles, bitsToFloat64(bits))
			i++
			if i < count {
				cp.CpIndex[i] = CpEntry{Type: Dummy}
			}
		case ClassRef:
			nameIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid class ref at CP entry #" + strconv.Itoa(i))
			}
			pos += 2
			cp.CpIndex[i] = CpEntry{Type: ClassRef, Slot: uint16(len(cp.ClassRefs))}
			cp.ClassRefs = append(cp.ClassRefs, uint16(nameIdx))
		case StringConst:
			strIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid string ref at CP entry #" + strconv.Itoa(i))
			}
			pos += 2
			cp.CpIndex[i] = CpEntry{Type: StringConst, Slot: uint16(len(cp.StringRefs))}
			cp.StringRefs = append(cp.StringRefs, uint16(strIdx))
		case FieldRef:
			classIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid field ref at CP entry #" + strconv.Itoa(i))
			}
			ntIdx, err := intFrom2Bytes(bytes, pos+2)
			if err != nil {
				return 0, cfe("invalid field ref at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: FieldRef, Slot: uint16(len(cp.FieldRefs))}
			cp.FieldRefs = append(cp.FieldRefs, FieldRefEntry{ClassIndex: uint16(classIdx), NameAndType: uint16(ntIdx)})
		case MethodRef:
			classIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid method ref at CP entry #" + strconv.Itoa(i))
			}
			ntIdx, err := intFrom2Bytes(bytes, pos+2)
			if err != nil {
				return 0, cfe("invalid method ref at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: MethodRef, Slot: uint16(len(cp.MethodRefs))}
			cp.MethodRefs = append(cp.MethodRefs, MethodRefEntry{ClassIndex: uint16(classIdx), NameAndType: uint16(ntIdx)})
		case Interface:
			classIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid interface method ref at CP entry #" + strconv.Itoa(i))
			}
			ntIdx, err := intFrom2Bytes(bytes, pos+2)
			if err != nil {
				return 0, cfe("invalid interface method ref at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: Interface, Slot: uint16(len(cp.InterfaceRefs))}
			cp.InterfaceRefs = append(cp.InterfaceRefs, InterfaceRefEntry{ClassIndex: uint16(classIdx), NameAndType: uint16(ntIdx)})
		case NameAndType:
			nameIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid name-and-type at CP entry #" + strconv.Itoa(i))
			}
			descIdx, err := intFrom2Bytes(bytes, pos+2)
			if err != nil {
				return 0, cfe("invalid name-and-type at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: NameAndType, Slot: uint16(len(cp.NameAndTypes))}
			cp.NameAndTypes = append(cp.NameAndTypes, NameAndTypeEntry{NameIndex: uint16(nameIdx), DescIndex: uint16(descIdx)})
		case MethodHandle:
			refKind := bytes[pos]
			refIdx, err := intFrom2Bytes(bytes, pos+1)
			if err != nil {
				return 0, cfe("invalid method handle at CP entry #" + strconv.Itoa(i))
			}
			pos += 3
			cp.CpIndex[i] = CpEntry{Type: MethodHandle, Slot: uint16(len(cp.MethodHandles))}
			cp.MethodHandles = append(cp.MethodHandles, MethodHandleEntry{RefKind: uint16(refKind), RefIndex: uint16(refIdx)})
		case MethodType:
			descIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid method type at CP entry #" + strconv.Itoa(i))
			}
			pos += 2
			cp.CpIndex[i] = CpEntry{Type: MethodType, Slot: uint16(len(cp.MethodTypes))}
			cp.MethodTypes = append(cp.MethodTypes, uint16(descIdx))
		case DynamicEntry:
			bootIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid dynamic entry at CP entry #" + strconv.Itoa(i))
			}
			ntIdx, err := intFrom2Bytes(bytes, pos+2)
			if err != nil {
				return 0, cfe("invalid dynamic entry at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: DynamicEntry, Slot: uint16(len(cp.Dynamics))}
			cp.Dynamics = append(cp.Dynamics, DynamicEntry{BootstrapIndex: uint16(bootIdx), NameAndType: uint16(ntIdx)})
		case InvokeDynamic:
			bootIdx, err := intFrom2Bytes(bytes, pos)
			if err != nil {
				return 0, cfe("invalid invokedynamic entry at CP entry #" + strconv.Itoa(i))
			}
			ntIdx, err := intFrom2Bytes(bytes, pos+2)
			if err != nil {
				return 0, cfe("invalid invokedynamic entry at CP entry #" + strconv.Itoa(i))
			}
			pos += 4
			cp.CpIndex[i] = CpEntry{Type: InvokeDynamic, Slot: uint16(len(cp.InvokeDynamics))}
			cp.InvokeDynamics = append(cp.InvokeDynamics, InvokeDynamicEntry{BootstrapIndex: uint16(bootIdx), NameAndType: uint16(ntIdx)})
		case Module, Package:
			// single u2 name index; not otherwise used by this implementation.
			pos += 2
			cp.CpIndex[i] = CpEntry{Type: tag}
		default:
			return 0, cfe("invalid constant pool tag " + strconv.Itoa(int(tag)) + " at CP entry #" + strconv.Itoa(i))
		}
	}

	return pos, nil
}

// decode the meaning of the class access flags. Table 4.1-B:
// https://docs.oracle.com/javase/specs/jvms/se11/html/jvms-4.html#jvms-4.1-200-E.1
func parseAccessFlags(bytes []byte, loc int, cd *ClData) (int, error) {
	flags, err := intFrom2Bytes(bytes, loc)
	if err != nil {
		return loc, cfe("invalid class access flags")
	}
	pos := loc + 2

	cd.Access = AccessFlags{
		ClassIsPublic:     flags&accPublic != 0,
		ClassIsFinal:      flags&accFinal != 0,
		ClassIsSuper:      flags&accSuper != 0,
		ClassIsInterface:  flags&accInterface != 0,
		ClassIsAbstract:   flags&accAbstract != 0,
		ClassIsSynthetic:  flags&accSynthetic != 0,
		ClassIsAnnotation: flags&accAnnotation != 0,
		ClassIsEnum:       flags&accEnum != 0,
		ClassIsModule:     flags&accModule != 0,
	}

	if log.LogLevel == log.FINEST {
		fmt.Fprintf(os.Stderr, "access flags: %#04x\n", flags)
	}
	return pos, nil
}

// The value for this item points to a CP entry of type Class_info. In turn,
// that entry points to the UTF-8 name of the class -- the package path, not
// including the .class extension, e.g. java/text/ParsePosition.
func parseClassName(bytes []byte, loc int, cd *ClData) (int, error) {
	index, err := intFrom2Bytes(bytes, loc)
	pos := loc + 2
	if err != nil {
		return pos, cfe("error obtaining index for class name")
	}

	name, err := classRefName(&cd.CP, index)
	if err != nil {
		return pos, err
	}
	cd.Name = name
	log.Log("class name: "+name, log.FINEST)
	return pos, nil
}

// Get the name of the superclass. Identical logic to parseClassName. All
// classes except java/lang/Object have a superclass.
func parseSuperClassName(bytes []byte, loc int, cd *ClData) (int, error) {
	index, err := intFrom2Bytes(bytes, loc)
	pos := loc + 2
	if err != nil {
		return pos, cfe("error obtaining index for superclass name")
	}

	if index == 0 {
		if cd.Name != "java/lang/Object" {
			return pos, cfe("invalid empty superclass reference")
		}
		return pos, nil
	}

	name, err := classRefName(&cd.CP, index)
	if err != nil {
		return pos, err
	}
	cd.Superclass = name
	log.Log("superclass name: "+name, log.FINEST)
	return pos, nil
}

func classRefName(cp *CPool, index int) (string, error) {
	if index < 1 || index > len(cp.CpIndex)-1 {
		return "", cfe("invalid index into CP for class reference")
	}
	entry := cp.CpIndex[index]
	if entry.Type != ClassRef {
		return "", cfe("invalid entry for class reference")
	}
	nameIndex := int(cp.ClassRefs[entry.Slot])
	return fetchUTF8string(cp, nameIndex)
}

func parseInterfaces(bytes []byte, loc int, cd *ClData) (int, error) {
	count, err := intFrom2Bytes(bytes, loc)
	pos := loc + 2
	if err != nil {
		return pos, cfe("error obtaining interfaces count")
	}
	for i := 0; i < count; i++ {
		index, err := intFrom2Bytes(bytes, pos)
		pos += 2
		if err != nil {
			return pos, cfe("error obtaining interface reference")
		}
		name, err := classRefName(&cd.CP, index)
		if err != nil {
			return pos, err
		}
		cd.Interfaces = append(cd.Interfaces, name)
	}
	return pos, nil
}

func parseFields(bytes []byte, loc int, cd *ClData) (int, error) {
	count, err := intFrom2Bytes(bytes, loc)
	pos := loc + 2
	if err != nil {
		return pos, cfe("error obtaining fields count")
	}

	for i := 0; i < count; i++ {
		flags, err := intFrom2Bytes(bytes, pos)
		if err != nil {
			return pos, cfe("error obtaining field access flags")
		}
		nameIdx, err := intFrom2Bytes(bytes, pos+2)
		if err != nil {
			return pos, cfe("error obtaining field name index")
		}
		descIdx, err := intFrom2Bytes(bytes, pos+4)
		if err != nil {
			return pos, cfe("error obtaining field descriptor index")
		}
		attrCount, err := intFrom2Bytes(bytes, pos+6)
		if err != nil {
			return pos, cfe("error obtaining field attribute count")
		}
		pos += 8

		field := Field{
			AccessFlags: flags,
			Name:        uint16(nameIdx),
			Desc:        uint16(descIdx),
			IsStatic:    flags&AccMemberStatic != 0,
		}

		for j := 0; j < attrCount; j++ {
			var a Attr
			a, pos, err = fetchAttribute(&cd.CP, bytes, pos)
			if err != nil {
				return pos, err
			}
			attrName := FetchUTF8stringFromCPEntryNumber(&cd.CP, a.AttrName)
			if attrName == "ConstantValue" && len(a.AttrContent) >= 2 {
				field.HasConstant = true
				field.ConstantCPindex = uint16(a.AttrContent[0])<<8 | uint16(a.AttrContent[1])
			}
			field.Attributes = append(field.Attributes, a)
		}

		cd.Fields = append(cd.Fields, field)
	}
	return pos, nil
}

func parseMethods(bytes []byte, loc int, cd *ClData) (int, error) {
	count, err := intFrom2Bytes(bytes, loc)
	pos := loc + 2
	if err != nil {
		return pos, cfe("error obtaining methods count")
	}

	for i := 0; i < count; i++ {
		flags, err := intFrom2Bytes(bytes, pos)
		if err != nil {
			return pos, cfe("error obtaining method access flags")
		}
		nameIdx, err := intFrom2Bytes(bytes, pos+2)
		if err != nil {
			return pos, cfe("error obtaining method name index")
		}
		descIdx, err := intFrom2Bytes(bytes, pos+4)
		if err != nil {
			return pos, cfe("error obtaining method descriptor index")
		}
		attrCount, err := intFrom2Bytes(bytes, pos+6)
		if err != nil {
			return pos, cfe("error obtaining method attribute count")
		}
		pos += 8

		method := Method{AccessFlags: flags, Name: uint16(nameIdx), Desc: uint16(descIdx)}

		for j := 0; j < attrCount; j++ {
			var a Attr
			a, pos, err = fetchAttribute(&cd.CP, bytes, pos)
			if err != nil {
				return pos, err
			}
			attrName := FetchUTF8stringFromCPEntryNumber(&cd.CP, a.AttrName)
			if attrName == "Code" {
				code, err := parseCodeAttribute(&cd.CP, a.AttrContent)
				if err != nil {
					return pos, err
				}
				method.CodeAttrib = code
			} else {
				method.Attributes = append(method.Attributes, a)
			}
		}

		cd.Methods = append(cd.Methods, method)
	}
	return pos, nil
}

// parseCodeAttribute decodes the Code attribute's inner structure, per
// §4.7.3: max_stack, max_locals, code, exception_table; the trailing
// nested attribute list (LineNumberTable etc.) is skipped, per §4.1.
func parseCodeAttribute(cp *CPool, content []byte) (CodeAttrib, error) {
	var ca CodeAttrib
	maxStack, err := intFrom2Bytes(content, 0)
	if err != nil {
		return ca, cfe("error reading max_stack in Code attribute")
	}
	maxLocals, err := intFrom2Bytes(content, 2)
	if err != nil {
		return ca, cfe("error reading max_locals in Code attribute")
	}
	codeLen, err := intFrom4Bytes(content, 4)
	if err != nil {
		return ca, cfe("error reading code_length in Code attribute")
	}
	ca.MaxStack = maxStack
	ca.MaxLocals = maxLocals

	pos := 8
	ca.Code = make([]byte, codeLen)
	copy(ca.Code, content[pos:pos+codeLen])
	pos += codeLen

	excCount, err := intFrom2Bytes(content, pos)
	if err != nil {
		return ca, cfe("error reading exception_table_length in Code attribute")
	}
	pos += 2

	for i := 0; i < excCount; i++ {
		startPc, _ := intFrom2Bytes(content, pos)
		endPc, _ := intFrom2Bytes(content, pos+2)
		handlerPc, _ := intFrom2Bytes(content, pos+4)
		catchType, _ := intFrom2Bytes(content, pos+6)
		pos += 8
		ca.Exceptions = append(ca.Exceptions, CodeException{
			StartPc: startPc, EndPc: endPc, HandlerPc: handlerPc, CatchType: uint16(catchType),
		})
	}

	attrCount, err := intFrom2Bytes(content, pos)
	if err != nil {
		return ca, nil // no further attributes present; not an error
	}
	pos += 2
	for i := 0; i < attrCount; i++ {
		var a Attr
		var perr error
		a, pos, perr = fetchAttribute(cp, content, pos)
		if perr != nil {
			break
		}
		ca.Attributes = append(ca.Attributes, a)
	}

	return ca, nil
}

func parseClassAttributes(bytes []byte, loc int, cd *ClData) (int, error) {
	count, err := intFrom2Bytes(bytes, loc)
	pos := loc + 2
	if err != nil {
		return pos, cfe("error obtaining class attribute count")
	}
	for i := 0; i < count; i++ {
		var a Attr
		a, pos, err = fetchAttribute(&cd.CP, bytes, pos)
		if err != nil {
			return pos, err
		}
		attrName := FetchUTF8stringFromCPEntryNumber(&cd.CP, a.AttrName)
		if attrName == "SourceFile" && len(a.AttrContent) >= 2 {
			idx := int(a.AttrContent[0])<<8 | int(a.AttrContent[1])
			cd.SourceFile, _ = fetchUTF8string(&cd.CP, idx)
		}
		cd.Attributes = append(cd.Attributes, a)
	}
	return pos, nil
}
