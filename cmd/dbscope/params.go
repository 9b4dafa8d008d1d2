package main

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// bindParams adds each name=value flag to the command. A flag without
// "=" is a positional value.
func bindParams(command data.Command, flags []string) error {
	for _, flag := range flags {
		name, raw, ok := strings.Cut(flag, "=")
		if !ok {
			name, raw = "", flag
		}
		name = strings.TrimSpace(name)
		if ok && name == "" {
			return errors.Errorf("parameter %q has an empty name", flag)
		}
		command.Parameters().AddWithValue(name, parseParamValue(raw))
	}
	return nil
}

// parseParamValue infers the value kind of a command-line parameter:
// NULL, booleans, integers and floats are typed, anything else is a
// string. Quoting with single quotes forces a string.
func parseParamValue(raw string) any {
	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return raw[1 : len(raw)-1]
	}

	switch strings.ToLower(raw) {
	case "null":
		return nil
	case "true", "false":
		return cast.ToBool(raw)
	}
	// Leading zeros keep codes such as "007" as text.
	if raw == "0" || !strings.HasPrefix(strings.TrimPrefix(raw, "-"), "0") {
		if n, err := cast.ToInt64E(raw); err == nil {
			return n
		}
	}
	if f, err := cast.ToFloat64E(raw); err == nil && strings.ContainsAny(raw, ".eE") {
		return f
	}
	return raw
}
