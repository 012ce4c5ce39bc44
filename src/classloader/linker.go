/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021 by Andrew Binstock. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

// Linker / resolver (§4.3). Three resolution flavors, each memoized in
// place inside the constant pool's Resolved side table so repeated
// lookups of the same CP index are O(1) after the first.

// ResolveClass resolves a CONSTANT_Class entry at cpIndex to its loaded
// Klass, loading it on demand. Was hb_resolve_class -- stubbed in the
// original C source (§10.7); fully implemented here.
func ResolveClass(cp *CPool, cpIndex int) (*Klass, error) {
	cp.ensureResolvedTable()
	if cp.Resolved[cpIndex].Kind == ResolvedClassKind {
		return cp.Resolved[cpIndex].Class, nil
	}

	entry := cp.CpIndex[cpIndex]
	if entry.Type != ClassRef {
		return nil, cfe("CP entry is not a class reference")
	}
	nameIdx := int(cp.ClassRefs[entry.Slot])
	name, err := fetchUTF8string(cp, nameIdx)
	if err != nil {
		return nil, err
	}

	k, err := GetOrLoad(name)
	if err != nil {
		return nil, err
	}

	cp.Resolved[cpIndex] = ResolvedEntry{Kind: ResolvedClassKind, Class: k}
	return k, nil
}

// ResolveStaticField resolves a field reference to the owning class's
// static storage slot, walking the class hierarchy (super-class, then
// super-interfaces, per JVM §5.4.3.2).
func ResolveStaticField(cp *CPool, cpIndex int) (*StaticSlot, error) {
	cp.ensureResolvedTable()
	if cp.Resolved[cpIndex].Kind == ResolvedStaticFieldKind {
		return cp.Resolved[cpIndex].StaticField, nil
	}

	fr := cp.FieldRefs[cp.CpIndex[cpIndex].Slot]
	cls, err := ResolveClass(cp, int(fr.ClassIndex))
	if err != nil {
		return nil, err
	}
	nt := cp.NameAndTypes[cp.CpIndex[fr.NameAndType].Slot]
	name, err := fetchUTF8string(cp, int(nt.NameIndex))
	if err != nil {
		return nil, err
	}

	slot, owner := findStaticField(cls, name)
	if slot == nil {
		return nil, cfe("NoSuchFieldError: " + name + " in " + cls.Data.Name)
	}
	_ = owner

	cp.Resolved[cpIndex] = ResolvedEntry{Kind: ResolvedStaticFieldKind, StaticField: slot}
	return slot, nil
}

func findStaticField(k *Klass, name string) (*StaticSlot, string) {
	for k != nil {
		if slot, ok := k.Data.StaticValues[name]; ok {
			return slot, k.Data.Name
		}
		if k.Data.Superclass == "" {
			break
		}
		var err error
		k, err = GetOrLoad(k.Data.Superclass)
		if err != nil {
			break
		}
	}
	return nil, ""
}

// ResolveInstanceField resolves a field reference to the *offset* into an
// instance's field array where the named field lives, per §4.3 -- found
// by linear search through the object's class's field layout (fixed at
// construction time, most-elder-class-first).
func ResolveInstanceField(cp *CPool, cpIndex int, fieldNames []string) (int, error) {
	cp.ensureResolvedTable()
	if cp.Resolved[cpIndex].Kind == ResolvedFieldOffsetKind {
		return cp.Resolved[cpIndex].Offset, nil
	}

	fr := cp.FieldRefs[cp.CpIndex[cpIndex].Slot]
	nt := cp.NameAndTypes[cp.CpIndex[fr.NameAndType].Slot]
	name, err := fetchUTF8string(cp, int(nt.NameIndex))
	if err != nil {
		return -1, err
	}

	for i, n := range fieldNames {
		if n == name {
			// Cached by cpIndex only; assumes every instance presented
			// through this same call site shares cpIndex's owning class
			// (and hence this field layout), so the offset is never
			// re-checked against the actual object on later hits.
			cp.Resolved[cpIndex] = ResolvedEntry{Kind: ResolvedFieldOffsetKind, Offset: i}
			return i, nil
		}
	}
	return -1, cfe("NoSuchFieldError: " + name)
}

// ResolveMethod resolves a method reference by walking the target class's
// methods, then its superclasses, then its superinterfaces. Was
// hb_resolve_method -- stubbed in the original C source (§10.7); fully
// implemented here. Signature-polymorphic handling and loader checks are
// not required (§4.3).
func ResolveMethod(cp *CPool, cpIndex int) (*Method, string, error) {
	cp.ensureResolvedTable()
	if cp.Resolved[cpIndex].Kind == ResolvedMethodKind {
		return cp.Resolved[cpIndex].Method, cp.Resolved[cpIndex].MethodOwner, nil
	}

	entry := cp.CpIndex[cpIndex]
	var classIdx, ntIdx uint16
	switch entry.Type {
	case MethodRef:
		mr := cp.MethodRefs[entry.Slot]
		classIdx, ntIdx = mr.ClassIndex, mr.NameAndType
	case Interface:
		ir := cp.InterfaceRefs[entry.Slot]
		classIdx, ntIdx = ir.ClassIndex, ir.NameAndType
	default:
		return nil, "", cfe("CP entry is not a method reference")
	}

	cls, err := ResolveClass(cp, int(classIdx))
	if err != nil {
		return nil, "", err
	}
	nt := cp.NameAndTypes[cp.CpIndex[ntIdx].Slot]
	name, err := fetchUTF8string(cp, int(nt.NameIndex))
	if err != nil {
		return nil, "", err
	}
	desc, err := fetchUTF8string(cp, int(nt.DescIndex))
	if err != nil {
		return nil, "", err
	}

	m, owner, err := FindMethod(cls, name, desc)
	if err != nil {
		return nil, "", err
	}

	cp.Resolved[cpIndex] = ResolvedEntry{Kind: ResolvedMethodKind, Method: m, MethodOwner: owner}
	return m, owner, nil
}

// FindMethod walks k's own methods, then its superclass chain, then its
// superinterfaces, searching for name+desc. Returns the method and the
// name of the class that actually declares it (needed by invokevirtual's
// override lookup in the jvm package).
func FindMethod(k *Klass, name, desc string) (*Method, string, error) {
	cls := k
	for cls != nil {
		if m, ok := cls.Data.MethodTable[name+desc]; ok {
			return m, cls.Data.Name, nil
		}
		for _, ifaceName := range cls.Data.Interfaces {
			iface, err := GetOrLoad(ifaceName)
			if err == nil {
				if m, ok := iface.Data.MethodTable[name+desc]; ok {
					return m, iface.Data.Name, nil
				}
			}
		}
		if cls.Data.Superclass == "" {
			break
		}
		var err error
		cls, err = GetOrLoad(cls.Data.Superclass)
		if err != nil {
			break
		}
	}
	return nil, "", cfe("NoSuchMethodError: " + name + desc)
}

// PrepClass sets each static field's storage slot and, for fields with a
// ConstantValue attribute, materializes its initial value -- integers
// sign-extended, long/double recombined from two 32-bit halves (high-half
// first), per §4.3. Was hb_prep_class.
func PrepClass(k *Klass) error {
	if k.Status >= StatusPrepped {
		return nil
	}
	cd := k.Data
	for i := range cd.Fields {
		f := &cd.Fields[i]
		if !f.IsStatic {
			continue
		}
		name, err := fetchUTF8string(&cd.CP, int(f.Name))
		if err != nil {
			return err
		}
		desc, err := fetchUTF8string(&cd.CP, int(f.Desc))
		if err != nil {
			return err
		}
		slot := &StaticSlot{Ftype: desc}
		if f.HasConstant {
			slot.Fvalue = constantValue(&cd.CP, desc, int(f.ConstantCPindex))
		} else {
			slot.Fvalue = zeroStaticValue(desc)
		}
		cd.StaticValues[name] = slot
	}
	k.Status = StatusPrepped
	return nil
}

func zeroStaticValue(desc string) interface{} {
	if len(desc) == 0 {
		return int64(0)
	}
	switch desc[0] {
	case 'D':
		return float64(0)
	case 'F':
		return float32(0)
	case 'L', '[':
		return nil
	default:
		return int64(0)
	}
}

func constantValue(cp *CPool, desc string, cpIndex int) interface{} {
	if cpIndex <= 0 || cpIndex >= len(cp.CpIndex) {
		return zeroStaticValue(desc)
	}
	entry := cp.CpIndex[cpIndex]
	switch entry.Type {
	case IntConst:
		v := int64(cp.IntConsts[entry.Slot]) // sign-extended by the int32->int64 conversion
		if len(desc) > 0 && desc[0] == 'Z' {
			if v != 0 {
				return int64(1)
			}
			return int64(0)
		}
		return v
	case LongConst:
		return cp.LongConsts[entry.Slot]
	case FloatConst:
		return cp.Floats[entry.Slot]
	case DoubleConst:
		return cp.Doubles[entry.Slot]
	case StringConst:
		idx := int(cp.StringRefs[entry.Slot])
		s, _ := fetchUTF8string(cp, idx)
		return s
	default:
		return zeroStaticValue(desc)
	}
}

// InitClass runs <clinit>, if present, then marks the class INITED. Must
// be called after PrepClass. Was hb_init_class.
func InitClass(k *Klass) error {
	if k.Status >= StatusInited {
		return nil
	}
	if k.Status < StatusPrepped {
		if err := PrepClass(k); err != nil {
			return err
		}
	}

	clinit, ok := k.Data.MethodTable["<clinit>()V"]
	if !ok {
		k.Status = StatusInited
		return nil
	}

	k.Status = StatusInited // set before running, so re-entrant GetOrLoad calls don't recurse
	return runClinit(k, clinit)
}

// runClinitHook lets the jvm package (which owns the interpreter loop)
// supply how <clinit> actually gets executed, without classloader
// depending on jvm and creating an import cycle.
var runClinitHook func(k *Klass, m *Method) error

// SetClinitRunner installs the interpreter's <clinit> runner. Called once
// from jvm.init().
func SetClinitRunner(fn func(k *Klass, m *Method) error) {
	runClinitHook = fn
}

func runClinit(k *Klass, m *Method) error {
	if runClinitHook == nil {
		return nil
	}
	return runClinitHook(k, m)
}
