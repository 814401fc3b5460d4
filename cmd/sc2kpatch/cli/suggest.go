// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the largest edit distance still offered as
// a "did you mean" suggestion.
const maxSuggestionDistance = 3

// suggestCommand returns the command name or alias nearest to
// unknown, or "".
func suggestCommand(unknown string, commands []*Command) string {
	var names []string
	for _, command := range commands {
		names = append(names, command.Name)
		names = append(names, command.Aliases...)
	}
	return closest(unknown, names)
}

// suggestFlag finds the first flag in args that flagSet does not
// define and returns the nearest defined long flag, as "--name", or "".
// Arguments after "--" are positional and never considered.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	for _, arg := range args {
		if arg == "--" {
			return ""
		}
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			continue
		}
		long := strings.HasPrefix(arg, "--")
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if long && flagSet.Lookup(name) != nil {
			continue
		}
		if !long && len(name) == 1 && flagSet.ShorthandLookup(name) != nil {
			continue
		}

		var defined []string
		flagSet.VisitAll(func(flag *pflag.Flag) { defined = append(defined, flag.Name) })
		if best := closest(name, defined); best != "" {
			return "--" + best
		}
		return ""
	}
	return ""
}

func closest(name string, candidates []string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, candidate := range candidates {
		if distance := levenshtein(name, candidate); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

// levenshtein is the edit distance between a and b, computed with two
// rolling rows over the shorter string.
func levenshtein(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return len(b)
	}

	above := make([]int, len(a)+1)
	row := make([]int, len(a)+1)
	for i := range above {
		above[i] = i
	}
	for j := 1; j <= len(b); j++ {
		row[0] = j
		for i := 1; i <= len(a); i++ {
			substitution := above[i-1]
			if a[i-1] != b[j-1] {
				substitution++
			}
			row[i] = min(above[i]+1, row[i-1]+1, substitution)
		}
		above, row = row, above
	}
	return above[len(a)]
}
