/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package classloader

// Constant-pool tag values, per JVM §4.4. Dummy (0) marks both the
// unused slot 0 and the dead second half of a long/double entry.
const (
	Dummy          = 0
	UTF8           = 1
	IntConst       = 3
	FloatConst     = 4
	LongConst      = 5
	DoubleConst    = 6
	ClassRef       = 7
	StringConst    = 8
	FieldRef       = 9
	MethodRef      = 10
	Interface      = 11
	NameAndType    = 12
	MethodHandle   = 15
	MethodType     = 16
	DynamicEntry   = 17
	InvokeDynamic  = 18
	Module         = 19
	Package        = 20
)

// CpEntry is one slot of the constant pool: a tag plus an index into the
// matching side table below. This is the "still symbolic" representation;
// resolved()/markResolved() in linker.go track the resolved overlay
// without ever touching this slot, replacing the original's stolen-high-
// bit trick with an explicit side table (§9, Design Notes).
type CpEntry struct {
	Type uint16
	Slot uint16
}

// FieldRefEntry, MethodRefEntry, InterfaceRefEntry all share this shape:
// an index to a ClassRef entry and an index to a NameAndType entry.
type FieldRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type MethodRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type InterfaceRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type NameAndTypeEntry struct {
	NameIndex uint16
	DescIndex uint16
}

type MethodHandleEntry struct {
	RefKind  uint16
	RefIndex uint16
}

type DynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}

type InvokeDynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}

// CPool is a class's constant pool: the 1-indexed CpIndex table of tagged
// entries, plus one side table per tag holding the actual payload. Index 0
// of CpIndex is always the Dummy placeholder.
type CPool struct {
	CpIndex        []CpEntry
	ClassRefs      []uint16 // each a UTF8 name-index
	StringRefs     []uint16 // each a UTF8 index holding the string's bytes
	Doubles        []float64
	Dynamics       []DynamicEntry
	FieldRefs      []FieldRefEntry
	Floats         []float32
	IntConsts      []int32
	InterfaceRefs  []InterfaceRefEntry
	InvokeDynamics []InvokeDynamicEntry
	LongConsts     []int64
	MethodHandles  []MethodHandleEntry
	MethodRefs     []MethodRefEntry
	MethodTypes    []uint16 // each a UTF8 descriptor index
	NameAndTypes   []NameAndTypeEntry
	Utf8Refs       []string

	// Resolved is the explicit resolved-overlay side table Design Note §9
	// calls for in place of the original's stolen-high-bit pointer trick:
	// one slot per CpIndex entry, populated in place by the linker the
	// first time a reference is resolved.
	Resolved []ResolvedEntry
}

// ResolvedKind tags what a ResolvedEntry actually holds.
type ResolvedKind byte

const (
	ResolvedNone ResolvedKind = iota
	ResolvedClassKind
	ResolvedFieldOffsetKind
	ResolvedStaticFieldKind
	ResolvedMethodKind
)

// ResolvedEntry is the direct-reference payload a constant-pool slot
// carries once resolved -- a sum type, per §9's Design Note, rather than a
// pointer with a bit stolen out of it.
type ResolvedEntry struct {
	Kind        ResolvedKind
	Class       *Klass
	Offset      int
	StaticField *StaticSlot
	Method      *Method
	MethodOwner string
}

func (cp *CPool) ensureResolvedTable() {
	if cp.Resolved == nil {
		cp.Resolved = make([]ResolvedEntry, len(cp.CpIndex))
	}
}

// ClassNameAt resolves a CONSTANT_Class entry at cpIndex to its class
// name, without loading the class -- used by exception catch-type
// matching (§4.7), which only needs the name, not a resolved Klass.
func ClassNameAt(cp *CPool, cpIndex int) (string, error) {
	if cpIndex < 1 || cpIndex >= len(cp.CpIndex) {
		return "", cfe("invalid class reference index")
	}
	entry := cp.CpIndex[cpIndex]
	if entry.Type != ClassRef {
		return "", cfe("CP entry is not a class reference")
	}
	nameIdx := int(cp.ClassRefs[entry.Slot])
	return fetchUTF8string(cp, nameIdx)
}

// FetchUTF8stringFromCPEntryNumber returns the UTF8 string stored at CP
// index entry, or "" if entry does not name a UTF8 slot.
func FetchUTF8stringFromCPEntryNumber(cp *CPool, entry uint16) string {
	if cp == nil || int(entry) >= len(cp.CpIndex) {
		return ""
	}
	u := cp.CpIndex[entry]
	if u.Type != UTF8 {
		return ""
	}
	if int(u.Slot) >= len(cp.Utf8Refs) {
		return ""
	}
	return cp.Utf8Refs[u.Slot]
}
