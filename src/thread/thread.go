/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package thread models the (single, per §5) interpreter thread: its name,
// its frame chain, and its starting class. GC state lives in the gc
// package, keyed by thread, rather than embedded here, so thread has no
// dependency on gc (§9's "pass a VM context explicitly" note, applied to
// keep the dependency graph acyclic).
package thread

import "jacobin/frames"

// ExecThread is the runtime record for one interpreter thread.
type ExecThread struct {
	Name       string
	ClassName  string // the bootstrap/starting class
	MethName   string
	Top  *frames.Frame // current (topmost) frame; nil if the thread has returned past its base frame
	Base *frames.Frame // bottom frame; GC's base-frame root walks Next from here (§4.8)
	ID         int
}

var nextID = 1

// CreateThread builds a new thread record for className/methName. The
// frame chain is empty until the caller pushes the base frame.
func CreateThread(className, methName string) *ExecThread {
	t := &ExecThread{Name: "main", ClassName: className, MethName: methName, ID: nextID}
	nextID++
	return t
}

// PushFrame makes f the thread's current frame, linking it onto the
// existing chain (or making it the base frame if the chain is empty).
func (t *ExecThread) PushFrame(f *frames.Frame) {
	if t.Top == nil {
		t.Base = f
	} else {
		f.Prev = t.Top
		t.Top.Next = f
	}
	t.Top = f
}

// PopFrame pops the thread's current frame and makes its predecessor
// current; if the chain empties, both Top and Base become nil (the
// interpreter loop observes this and terminates the thread, per §4.6).
func (t *ExecThread) PopFrame() {
	prev := frames.PopFrame(t.Top)
	t.Top = prev
	if t.Top == nil {
		t.Base = nil
	}
}
