/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Package shutdown centralizes process-exit codes so VM-level fatal
// failures (malformed class, unimplemented opcode, failed allocation) all
// go through one named place instead of scattered os.Exit calls.
package shutdown

import "os"

// Exit codes. OK must stay 0; the others are only distinguished for
// diagnostics, no caller currently branches on their numeric value.
const (
	OK           = 0
	JVM_EXCEPTION = 1
	APP_EXCEPTION = 2
)

// Exit terminates the process with the given code. It exists so a future
// caller can hook in flush-before-exit behavior (log sync, GC stats dump)
// in exactly one place.
func Exit(code int) {
	os.Exit(code)
}
