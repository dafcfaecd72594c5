// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/apex/log"
)

// maxSchemaDepth limits the depth of schema walking.
const maxSchemaDepth = 1

// DumpSchema writes the attribute paths available to --attrs and --filter for
// the provided record type, in field order. Nested structs are listed with
// dotted paths one level deep.
func DumpSchema(typ reflect.Type, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}

	fmt.Fprintln(w,
		`Record attributes available to the --attrs and --filter flags. Nested
values can be addressed with dotted paths; use --output=raw to see everything.`)
	fmt.Fprintln(w, "")

	names := dumpSchemaWalker("", typ, 0)
	if len(names) == 0 {
		log.Debugf("no json tags found for type: %s", typ.Name())
		return
	}

	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}

// dumpSchemaWalker walks a struct type collecting json field names.
func dumpSchemaWalker(holder string, typ reflect.Type, depth int) []string {
	names := make([]string, 0, typ.NumField())

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		tagValue, ok := field.Tag.Lookup("json")
		if !ok {
			continue
		}
		name := strings.Split(tagValue, ",")[0]
		if name == "-" || name == "" {
			continue
		}
		if holder != "" {
			name = holder + "." + name
		}
		names = append(names, name)

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if depth < maxSchemaDepth && ft.Kind() == reflect.Struct && ft.PkgPath() == typ.PkgPath() {
			names = append(names, dumpSchemaWalker(name, ft, depth+1)...)
		}
	}

	return names
}
