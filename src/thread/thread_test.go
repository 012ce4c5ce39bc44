/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package thread

import (
	"jacobin/classloader"
	"jacobin/frames"
	"testing"
)

func testFrame() *frames.Frame {
	m := &classloader.Method{CodeAttrib: classloader.CodeAttrib{MaxLocals: 2, MaxStack: 2}}
	return frames.NewFrame(m, nil, "test/Class")
}

func TestCreateThreadAssignsUniqueIDs(t *testing.T) {
	a := CreateThread("test/A", "main")
	b := CreateThread("test/B", "main")
	if a.ID == b.ID {
		t.Errorf("expected distinct thread IDs, both got %d", a.ID)
	}
}

func TestPushFrameSetsBaseOnFirstPush(t *testing.T) {
	th := CreateThread("test/Class", "main")
	f := testFrame()
	th.PushFrame(f)
	if th.Top != f || th.Base != f {
		t.Error("expected the first pushed frame to be both Top and Base")
	}
}

func TestPushFrameChainsOntoExisting(t *testing.T) {
	th := CreateThread("test/Class", "main")
	base := testFrame()
	th.PushFrame(base)

	callee := testFrame()
	th.PushFrame(callee)

	if th.Top != callee {
		t.Error("expected the second pushed frame to become Top")
	}
	if th.Base != base {
		t.Error("expected Base to remain the first frame")
	}
	if callee.Prev != base || base.Next != callee {
		t.Error("expected Prev/Next links between base and callee")
	}
}

func TestPopFrameRestoresPredecessor(t *testing.T) {
	th := CreateThread("test/Class", "main")
	base := testFrame()
	th.PushFrame(base)
	callee := testFrame()
	th.PushFrame(callee)

	th.PopFrame()
	if th.Top != base {
		t.Error("expected Top to revert to the base frame after popping the callee")
	}
	if th.Base != base {
		t.Error("expected Base to be unchanged")
	}
}

func TestPopFrameEmptiesChainAtBase(t *testing.T) {
	th := CreateThread("test/Class", "main")
	th.PushFrame(testFrame())

	th.PopFrame()
	if th.Top != nil || th.Base != nil {
		t.Error("expected Top and Base to both be nil once the chain empties")
	}
}
