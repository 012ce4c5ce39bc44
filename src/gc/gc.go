/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package gc is the mark-and-sweep collector of §4.8: a reference table
// seeded from a root set, invoked opportunistically between opcodes. The
// actual freeing of Go memory is left to the Go runtime (§1 treats the
// low-level heap allocator as an external collaborator); sweep's job is
// to maintain the reference-table invariant every other component relies
// on (every live obj_ref has a PRESENT entry) and to produce the stats
// §4.8 and §8 require.
package gc

import (
	"jacobin/classloader"
	"jacobin/frames"
	"jacobin/javaTypes"
	"jacobin/log"
	"jacobin/object"
	"jacobin/thread"
	"time"
)

// RefState is PRESENT or ABSENT, per §3's GC state description.
type RefState byte

const (
	RefAbsent RefState = iota
	RefPresent
)

// Root is one entry of the root list: a named scan function invoked during
// mark. Grounded on gc_root_t's (scan_fn, ptr, name) shape.
type Root struct {
	Name string
	Scan func(s *State)
}

// Stats accumulates per-cycle mark/sweep statistics, per §4.8 and the
// "GC pacing" testable property (§8).
type Stats struct {
	MarkTime        time.Duration
	SweepTime       time.Duration
	ObjectsCollected int
	BytesReclaimed   int64
}

// State is the GC state singleton: reference table, roots, pacing, and
// accumulated stats.
type State struct {
	refTable map[*object.Object]RefState

	roots []Root

	BaseObjectRef *object.Reference // the base-class instance, set once the bootstrap frame is pushed
	Thr           *thread.ExecThread

	TraceOn    bool
	IntervalMS int64

	lastCollect time.Time
	Stats       Stats
}

// VM is the process-wide GC state. §5 notes the registry, GC state, and
// heap allocator are process-wide singletons given the single-interpreter-
// thread model; an implementation adding Java threads must guard these.
var VM = &State{refTable: make(map[*object.Object]RefState)}

// Init registers the four roots from §4.8: the base-class instance
// reference, the base object itself, the base (bottom) frame of the
// thread, and the class-map. Mirrors gc_init.
func Init(t *thread.ExecThread, intervalMS int64, trace bool) {
	VM.refTable = make(map[*object.Object]RefState)
	VM.Thr = t
	VM.TraceOn = trace
	if intervalMS == 0 {
		intervalMS = 20 // GC_DEFAULT_INTERVAL
	}
	VM.IntervalMS = intervalMS
	VM.lastCollect = time.Now()

	VM.roots = []Root{
		{Name: "base-object-ref", Scan: scanBaseObjectRef},
		{Name: "base-object", Scan: scanBaseObject},
		{Name: "base-frame", Scan: scanBaseFrame},
		{Name: "class-map", Scan: scanClassMap},
	}
}

// insertRef registers ref as PRESENT. Every allocator in this package
// calls this -- the interpreter must never construct an object.Object
// without going through New*, or the GC will never see it (§4.4).
func insertRef(o *object.Object) {
	VM.refTable[o] = RefPresent
}

// NewObject is the GC-registering wrapper around object.MakeObject, per
// §4.4 -- the interpreter must use this, never object.MakeObject directly.
func NewObject(cls *classloader.Klass) object.Reference {
	o := object.MakeObject(cls)
	insertRef(o)
	return object.Reference{Ptr: o, Kind: object.KindObject}
}

// NewArray is the GC-registering wrapper around object.MakeArray.
func NewArray(elementType int, length int) object.Reference {
	o := object.MakeArray(elementType, length)
	insertRef(o)
	return object.Reference{Ptr: o, Kind: object.KindArray}
}

// NewStringObject is the GC-registering wrapper for a String instance
// whose char array holds s.
func NewStringObject(s string) object.Reference {
	o := object.NewStringFromGoString(s)
	insertRef(o)
	return object.Reference{Ptr: o, Kind: object.KindObject}
}

// ShouldCollect reports whether enough time has elapsed since the last
// cycle to trigger another one, per §4.8's pacing.
func ShouldCollect() bool {
	return time.Since(VM.lastCollect) >= time.Duration(VM.IntervalMS)*time.Millisecond
}

// Collect runs one mark-and-sweep cycle, timing each phase and recording
// stats; the pacing timer resets on completion. Mirrors gc_collect.
func Collect() {
	markStart := time.Now()
	mark()
	markTime := time.Since(markStart)

	sweepStart := time.Now()
	collected, bytes := sweep()
	sweepTime := time.Since(sweepStart)

	VM.Stats = Stats{
		MarkTime:         markTime,
		SweepTime:        sweepTime,
		ObjectsCollected: collected,
		BytesReclaimed:   bytes,
	}
	VM.lastCollect = time.Now()

	if VM.TraceOn {
		log.Log("gc: collected "+itoa(collected)+" objects", log.INFO)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// mark clears every ref-table entry to ABSENT, then runs each root's scan
// function; a scan marks reachable refs PRESENT and recurses into their
// reference-typed fields.
func mark() {
	for k := range VM.refTable {
		VM.refTable[k] = RefAbsent
	}
	for _, r := range VM.roots {
		r.Scan(VM)
	}
}

// markRef marks ref PRESENT (if it is in the table at all -- an entry not
// in the ref table is a dangling reference and is skipped silently, per
// §4.8) and recurses into its reference-typed fields if this is the first
// time it has been marked in this cycle.
func markRef(o *object.Object) {
	if o == nil {
		return
	}
	state, tracked := VM.refTable[o]
	if !tracked {
		return
	}
	if state == RefPresent {
		return // already scanned this cycle
	}
	VM.refTable[o] = RefPresent
	scanFields(o)
}

func scanFields(o *object.Object) {
	if o.Kind == object.KindArray {
		if o.ArrayType != javaTypes.Ref {
			return
		}
		for _, f := range o.Fields {
			if ref, ok := f.Fvalue.(*object.Object); ok {
				markRef(ref)
			}
		}
		return
	}
	for _, f := range o.Fields {
		if len(f.Ftype) == 0 {
			continue
		}
		if f.Ftype[0] != 'L' && f.Ftype[0] != '[' {
			continue
		}
		if ref, ok := f.Fvalue.(*object.Object); ok {
			markRef(ref)
		}
	}
}

func scanBaseObjectRef(s *State) {
	if s.BaseObjectRef != nil && !s.BaseObjectRef.IsNull() {
		markRef(s.BaseObjectRef.Ptr)
	}
}

func scanBaseObject(s *State) {
	if s.BaseObjectRef != nil && !s.BaseObjectRef.IsNull() {
		scanFields(s.BaseObjectRef.Ptr)
	}
}

// scanBaseFrame walks the thread's frame chain from the base frame
// forward via Next, scanning every local and every operand-stack slot of
// every frame (§4.8).
func scanBaseFrame(s *State) {
	if s.Thr == nil {
		return
	}
	for f := s.Thr.Base; f != nil; f = f.Next {
		scanFrame(f)
	}
}

func scanFrame(f *frames.Frame) {
	for _, v := range f.Locals {
		if v.Kind == frames.KindRef && !v.Ref.IsNull() {
			markRef(v.Ref.Ptr)
		}
	}
	for i := 0; i <= f.TOS && i < len(f.OpStack); i++ {
		v := f.OpStack[i]
		if v.Kind == frames.KindRef && !v.Ref.IsNull() {
			markRef(v.Ref.Ptr)
		}
	}
}

// scanClassMap scans the static fields of every loaded class.
func scanClassMap(s *State) {
	classloader.MethArea.Each(func(name string, k *classloader.Klass) {
		if k.Data == nil {
			return
		}
		for _, slot := range k.Data.StaticValues {
			if ref, ok := slot.Fvalue.(*object.Object); ok {
				markRef(ref)
			}
		}
	})
}

// sweep removes every still-ABSENT entry (the object is unreachable),
// accumulating the objects-collected and bytes-reclaimed statistics.
// PRESENT entries are left alone.
func sweep() (collected int, bytesReclaimed int64) {
	for o, state := range VM.refTable {
		if state == RefAbsent {
			collected++
			bytesReclaimed += approxSize(o)
			delete(VM.refTable, o)
		}
	}
	return collected, bytesReclaimed
}

// approxSize estimates an object's field-array footprint; this is a
// diagnostic number for §8's stats property, not used for any allocation
// decision.
func approxSize(o *object.Object) int64 {
	return int64(len(o.Fields)) * 8
}
