package main

import (
	"strings"

	"github.com/condensereality/UnityGameHostingAction/internal/config"
)

// paramArgs rewrites Name=Value arguments that name a parameter into
// --Name=Value flags, so "BuildName=main", "-BuildName=main" and
// "--BuildName=main" are equivalent. Arguments after "--" are kept as is.
func paramArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			out = append(out, args[i:]...)
			break
		}
		if !strings.HasPrefix(arg, "--") {
			trimmed := strings.TrimPrefix(arg, "-")
			if name, _, ok := strings.Cut(trimmed, "="); ok && config.IsParameter(name) {
				arg = "--" + trimmed
			}
		}
		out = append(out, arg)
	}
	return out
}
