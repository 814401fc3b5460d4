// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagsFromParams returns a flag set named name with every tagged
// field of params bound. params must point to a struct; anything else
// is a programming error and panics.
//
//	var params applyParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("apply", &params) },
//	    Run: func(ctx context.Context, args []string) error {
//	        // params is populated here
//	    },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags declares a flag on flagSet for each tagged field of the
// struct params points to. Tags:
//
//   - flag:"name" or flag:"name,n": long name and optional one-letter
//     shorthand. Untagged fields are ignored.
//   - desc:"...": help text.
//   - default:"...": default value in the field's syntax; the zero
//     value when absent.
//
// Fields may be string, bool, int or []string (comma-separated
// default). Embedded structs contribute their own tagged fields, which
// is how commands share flag groups.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(value.Elem(), flagSet)
}

func bindStruct(value reflect.Value, flagSet *pflag.FlagSet) error {
	for i := range value.NumField() {
		field := value.Type().Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStruct(value.Field(i), flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}
		tag, ok := field.Tag.Lookup("flag")
		if !ok || tag == "" {
			continue
		}
		parsed := flagTag{description: field.Tag.Get("desc"), fallback: field.Tag.Get("default")}
		parsed.name, parsed.shorthand, _ = strings.Cut(tag, ",")
		if err := parsed.bind(value.Field(i), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// flagTag is one parsed flag tag.
type flagTag struct {
	name        string
	shorthand   string
	description string
	fallback    string
}

func (s flagTag) bind(field reflect.Value, flagSet *pflag.FlagSet) error {
	if !field.CanSet() {
		return fmt.Errorf("--%s: field is unexported", s.name)
	}
	switch target := field.Addr().Interface().(type) {
	case *string:
		flagSet.StringVarP(target, s.name, s.shorthand, s.fallback, s.description)
	case *bool:
		fallback, err := parseDefault(s, strconv.ParseBool)
		if err != nil {
			return err
		}
		flagSet.BoolVarP(target, s.name, s.shorthand, fallback, s.description)
	case *int:
		fallback, err := parseDefault(s, strconv.Atoi)
		if err != nil {
			return err
		}
		flagSet.IntVarP(target, s.name, s.shorthand, fallback, s.description)
	case *[]string:
		var fallback []string
		if s.fallback != "" {
			fallback = strings.Split(s.fallback, ",")
		}
		flagSet.StringSliceVarP(target, s.name, s.shorthand, fallback, s.description)
	default:
		return fmt.Errorf("--%s: unsupported type %s", s.name, field.Type())
	}
	return nil
}

// parseDefault parses the default tag with parse, or returns the zero
// value when the tag is absent.
func parseDefault[T any](s flagTag, parse func(string) (T, error)) (T, error) {
	var zero T
	if s.fallback == "" {
		return zero, nil
	}
	value, err := parse(s.fallback)
	if err != nil {
		return zero, fmt.Errorf("default for --%s: %w", s.name, err)
	}
	return value, nil
}
