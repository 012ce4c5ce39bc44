/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

package frames

import "jacobin/util"

// MarshalParams implements §4.5's parameter marshalling: copy the top
// operand-stack slots of the caller into the callee's locals in order,
// decrementing the caller's stack pointer accordingly. The operand stack
// holds one Value per slot regardless of width (§4.6: "the operand stack
// stores them as a single 64-bit slot"), so the number of slots to pop is
// one per parameter plus one for the receiver (DESIGN.md, Open Question
// c) -- never util.ParamSlotCount's wide-doubled count, which describes
// local-variable-array width, not operand-stack depth.
//
// Wide values (long/double) occupy two adjacent locals faithfully to
// §4.5, but since Value is an explicit sum type rather than a raw 32-bit
// union (§9 Design Note), the second slot is a placeholder never read
// directly -- only locals[k] carries the value; locals[k+1] exists purely
// so local-variable indices for subsequent parameters land correctly.
func MarshalParams(caller *Frame, callee *Frame, descriptor string, isStatic bool) {
	paramTypes := util.ParamTypes(descriptor)
	n := len(paramTypes)
	if !isStatic {
		n++
	}

	// Collect the n caller-stack slots (receiver-first if non-static),
	// then distribute into callee locals left to right.
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = caller.Pop()
	}

	k := 0
	argIdx := 0
	if !isStatic {
		callee.Locals[0] = args[0]
		k = 1
		argIdx = 1
	}
	for range paramTypes {
		v := args[argIdx]
		callee.Locals[k] = v
		if v.IsWide() {
			k += 2
		} else {
			k++
		}
		argIdx++
	}
}
