/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package classloader

import "sync"

// Class status, per §3: NONE -> LOADED -> PREPPED -> INITED.
const (
	StatusNone = byte(iota)
	StatusLoaded
	StatusPrepped
	StatusInited
)

// AccessFlags decodes the class-level access_flags word, per JVM §4.1.
type AccessFlags struct {
	ClassIsPublic     bool
	ClassIsFinal      bool
	ClassIsSuper      bool
	ClassIsInterface  bool
	ClassIsAbstract   bool
	ClassIsSynthetic  bool
	ClassIsAnnotation bool
	ClassIsEnum       bool
	ClassIsModule     bool
}

const (
	accPublic     = 0x0001
	accFinal      = 0x0010
	accSuper      = 0x0020
	accInterface  = 0x0200
	accAbstract   = 0x0400
	accSynthetic  = 0x1000
	accAnnotation = 0x2000
	accEnum       = 0x4000
	accModule     = 0x8000

	// method/field level, reused from the same bit space per §6.
	AccMemberPublic    = 0x0001
	AccMemberPrivate   = 0x0002
	AccMemberProtected = 0x0004
	AccMemberStatic    = 0x0008
	AccMemberFinal     = 0x0010
	AccMemberNative    = 0x0100
	AccMemberAbstract  = 0x0400
)

// Attr is a raw, unprocessed class-file attribute: everything except Code
// and ConstantValue, which are promoted into dedicated fields because the
// interpreter reads them on every hot path.
type Attr struct {
	AttrName    uint16
	AttrSize    int
	AttrContent []byte
}

// CodeException is one entry of a method's exception table (§3); order is
// match order, CatchType == 0 means "any".
type CodeException struct {
	StartPc   int
	EndPc     int
	HandlerPc int
	CatchType uint16
}

// CodeAttrib is a method's "Code" attribute: everything the interpreter
// needs to execute the method.
type CodeAttrib struct {
	MaxStack   int
	MaxLocals  int
	Code       []byte
	Exceptions []CodeException
	Attributes []Attr
}

// Field is one declared field of a class.
type Field struct {
	AccessFlags int
	Name        uint16 // UTF8 CP index
	Desc        uint16 // UTF8 CP index
	IsStatic    bool
	HasConstant bool
	ConstantCPindex uint16 // valid iff HasConstant
	Attributes  []Attr
}

// Method is one declared method of a class. CodeAttrib.Code is nil for
// abstract/native methods.
type Method struct {
	AccessFlags int
	Name        uint16 // UTF8 CP index
	Desc        uint16 // UTF8 CP index
	CodeAttrib  CodeAttrib
	Attributes  []Attr
}

// ClData is the long-lived, in-memory representation of a parsed class.
// It is created once by the reader and then mutated in place only by the
// linker, which resolves constant-pool entries (§4.3).
type ClData struct {
	Name       string
	Superclass string
	Interfaces []string // resolved interface class names
	Fields     []Field
	Methods    []Method
	MethodTable map[string]*Method // keyed by "name+desc", built at load time
	Attributes []Attr
	SourceFile string
	Access     AccessFlags
	ClInit     byte // status of <clinit> execution, reuses the status enum

	CP CPool

	// StaticValues holds this class's own static field storage, one slot
	// per static Field in Fields (parallel, not indexed by instance
	// layout). Populated during prep (§4.3).
	StaticValues map[string]*StaticSlot
}

// StaticSlot is a static field's storage cell plus the descriptor needed
// to interpret its bits.
type StaticSlot struct {
	Ftype  string
	Fvalue interface{}
}

// Klass is the registry's entry: a load-status byte, the loader that
// produced it (only "bootstrap" is implemented, per §1's non-goals), and
// the parsed data.
type Klass struct {
	Status byte
	Loader string
	Data   *ClData
}

// classRegistry is the class registry (§4.2): a global mapping from class
// name to class pointer. A sync.Map is used even though §5 guarantees a
// single interpreter thread, so that tooling (tests running in parallel,
// a future debugger) never has to reason about a bare map.
type classRegistry struct {
	mu      sync.RWMutex
	classes map[string]*Klass
}

func newClassRegistry() *classRegistry {
	return &classRegistry{classes: make(map[string]*Klass)}
}

// MethArea is the process-wide class registry singleton.
var MethArea = newClassRegistry()

// IsLoaded reports whether name is already present in the registry,
// regardless of its status.
func (r *classRegistry) IsLoaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[name]
	return ok
}

// Add inserts or replaces the registry entry for name.
func (r *classRegistry) Add(name string, k *Klass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[name] = k
}

// Fetch returns the registry entry for name, if any.
func (r *classRegistry) Fetch(name string) (*Klass, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.classes[name]
	return k, ok
}

// Each visits every loaded class; used by the GC's class-map root scan
// (§4.8) to walk every class's static fields.
func (r *classRegistry) Each(fn func(name string, k *Klass)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, k := range r.classes {
		fn(name, k)
	}
}

// MTentry caches a resolved method lookup so repeated calls to the same
// (class, name, descriptor) triple skip the MethodTable scan.
type MTentry struct {
	Meth  *Method
	Owner string
}

var mtable = struct {
	mu sync.RWMutex
	m  map[string]MTentry
}{m: make(map[string]MTentry)}

// FetchMethodAndCP finds a method by class/name/descriptor, consulting
// (and populating) the method cache first.
func FetchMethodAndCP(className, methName, methType string) (MTentry, error) {
	key := className + "." + methName + methType
	mtable.mu.RLock()
	if e, ok := mtable.m[key]; ok {
		mtable.mu.RUnlock()
		return e, nil
	}
	mtable.mu.RUnlock()

	k, err := GetOrLoad(className)
	if err != nil {
		return MTentry{}, err
	}

	searchName := methName + methType
	cls := k
	for cls != nil {
		if cls.Data.MethodTable != nil {
			if m, ok := cls.Data.MethodTable[searchName]; ok {
				entry := MTentry{Meth: m, Owner: cls.Data.Name}
				mtable.mu.Lock()
				mtable.m[key] = entry
				mtable.mu.Unlock()
				return entry, nil
			}
		}
		if cls.Data.Superclass == "" {
			break
		}
		cls, err = GetOrLoad(cls.Data.Superclass)
		if err != nil {
			return MTentry{}, err
		}
	}
	return MTentry{}, cfe("no such method: " + className + "." + searchName)
}
