/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021 by Andrew Binstock. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"jacobin/log"
	"os"
	"path/filepath"
	"strings"
)

// Classpath is the ordered list of directories searched for a named
// class's .class file. main() populates it from the CLASSPATH environment
// variable and the current directory; tests may set it directly.
var Classpath = []string{"."}

// LoadClassFromNameOnly reads name+".class" off the configured classpath,
// parses it, and registers it in MethArea at StatusLoaded. It is a no-op
// if the class is already loaded.
func LoadClassFromNameOnly(name string) error {
	if MethArea.IsLoaded(name) {
		return nil
	}

	data, err := readClassFile(name)
	if err != nil {
		return err
	}

	cd, err := parse(data)
	if err != nil {
		return err
	}

	MethArea.Add(name, &Klass{Status: StatusLoaded, Loader: "bootstrap", Data: cd})
	log.Log("loaded class: "+name, log.CLASS)
	return nil
}

func readClassFile(name string) ([]byte, error) {
	rel := strings.ReplaceAll(name, ".", string(filepath.Separator)) + ".class"
	var lastErr error
	for _, dir := range Classpath {
		path := filepath.Join(dir, rel)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = cfe("class not found: " + name)
	}
	return nil, cfe("could not load class " + name + ": " + lastErr.Error())
}

// GetOrLoad returns the registry entry for name, loading, prepping, and
// initializing it first if it is not yet present (§4.2).
func GetOrLoad(name string) (*Klass, error) {
	if k, ok := MethArea.Fetch(name); ok {
		return k, nil
	}

	if err := LoadClassFromNameOnly(name); err != nil {
		return nil, err
	}

	k, _ := MethArea.Fetch(name)

	if err := PrepClass(k); err != nil {
		return nil, err
	}

	if err := InitClass(k); err != nil {
		return nil, err
	}

	return k, nil
}
