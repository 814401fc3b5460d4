// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONOutput adds a --json flag to a params struct by embedding.
//
//	type verifyParams struct {
//	    cli.JSONOutput
//	    settingsParams
//	}
//
//	// In Run:
//	if done, err := params.EmitJSON(stdout, results); done {
//	    return err
//	}
//	// text output follows
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// EmitJSON encodes result to w when --json was given and reports
// whether it did. Callers fall through to text output when done is
// false. A nil slice is written as [] rather than null.
func (j *JSONOutput) EmitJSON(w io.Writer, result any) (done bool, err error) {
	if !j.OutputJSON {
		return false, nil
	}
	if v := reflect.ValueOf(result); v.Kind() == reflect.Slice && v.IsNil() {
		result = reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return true, WriteJSON(w, result)
}

// WriteJSON writes value to w as two-space indented JSON.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
