/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021 by Andrew Binstock. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import "math"

func bitsToFloat32(bits uint32) float32 {
	return math.Float32frombits(bits)
}

func bitsToFloat64(bits uint64) float64 {
	return math.Float64frombits(bits)
}
