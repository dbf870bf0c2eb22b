// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates configuration documents against an embedded CUE
// schema.
//
// The flow is the same for every document format:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile (CUE) or encode (TOML, JSON) the user document
//  3. Unify, validate and decode to a generic map
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schemaBytes []byte
//
//	schema, err := cueutil.CompileSchema(schemaBytes, "#Config")
//	if err != nil {
//	    return err
//	}
//	values, err := schema.DecodeCUE(data, "config.cue")
//	if err != nil {
//	    return err // *ValidationError values carrying the JSON path
//	}
package cueutil
