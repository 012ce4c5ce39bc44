/* Jacobin VM -- A Java virtual machine
 * (c) Copyright 2021 by Andrew Binstock. All rights reserved
 * Licensed under Mozilla Public License 2.0
 */

// Command jacobin is the thin CLI front-end: parse flags, install the
// globals snapshot, and hand off to jvm.StartExec. Everything that
// matters for correctness lives in the packages under src/; this file
// only translates argv into a Globals value.
package main

import (
	"flag"
	"fmt"
	"jacobin/globals"
	"jacobin/jvm"
	"jacobin/log"
	"jacobin/shutdown"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("jacobin", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = func() { printUsage(fs) }

	showVersion := fs.Bool("V", false, "print version and exit")
	fs.BoolVar(showVersion, "version", false, "print version and exit")
	showHelp := fs.Bool("h", false, "print this help and exit")
	fs.BoolVar(showHelp, "help", false, "print this help and exit")
	heapSize := fs.Int("H", 0, "initial heap size in KB (informational; this VM does not pre-size its heap)")
	fs.IntVar(heapSize, "heap-size", 0, "initial heap size in KB (informational; this VM does not pre-size its heap)")
	traceGC := fs.Bool("t", false, "trace garbage collection")
	fs.BoolVar(traceGC, "trace-gc", false, "trace garbage collection")
	gcIntervalMS := fs.Int64("c", globals.DefaultGCIntervalMS, "GC pacing interval in milliseconds")
	fs.Int64Var(gcIntervalMS, "gc-interval", globals.DefaultGCIntervalMS, "GC pacing interval in milliseconds")

	if err := fs.Parse(argv); err != nil {
		return shutdown.APP_EXCEPTION
	}

	g := globals.InitGlobals("jacobin")
	log.Init()

	if *showVersion {
		fmt.Println(g.JacobinName + " " + g.Version)
		return shutdown.OK
	}
	if *showHelp || fs.NArg() == 0 {
		printUsage(fs)
		return shutdown.OK
	}

	g.GcTraceOn = *traceGC
	g.GcIntervalMS = *gcIntervalMS

	className := fs.Arg(0)
	g.Args = fs.Args()[1:]

	if err := jvm.StartExec(className, g); err != nil {
		log.Log(err.Error(), log.SEVERE)
		return shutdown.JVM_EXCEPTION
	}
	return shutdown.OK
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stdout, "Usage: jacobin [options] class [args...]")
	fmt.Fprintln(os.Stdout, "Options:")
	fs.PrintDefaults()
}
