// Package server exposes a stratum engine over a line-oriented TCP protocol.
package server

import (
	"fmt"
	"strconv"
	"strings"

	"stratum/internal/engine"
)

// Command is one parsed client request.
type Command struct {
	Type  string
	Key   string
	Value engine.Value
}

// Command type constants. The wire verbs are lowercase; ParseCommand is
// case-insensitive on the verb itself.
const (
	CmdGet     = "get"
	CmdSet     = "set"
	CmdDelete  = "delete"
	CmdFlush   = "flush"
	CmdCompact = "compact"
	CmdStatus  = "status"
)

// ParseCommand parses one line of the protocol:
//
//	get <key>
//	set <key>|<value>
//	delete <key>
//	flush
//	compact
//	status
//
// where <value> follows the typed wire form of §6: "i:<decimal>" decodes as
// Int64, "f:<decimal>" as Float64, anything else as a Str value taken
// verbatim after the "|" (leading whitespace is kept; trailing whitespace is
// trimmed together with the rest of the line).
func ParseCommand(line string) (*Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, fmt.Errorf("empty command")
	}

	parts := strings.SplitN(trimmed, " ", 2)
	verb := strings.ToLower(parts[0])

	switch verb {
	case CmdStatus:
		return &Command{Type: CmdStatus}, nil

	case CmdFlush:
		return &Command{Type: CmdFlush}, nil

	case CmdCompact:
		return &Command{Type: CmdCompact}, nil

	case CmdGet:
		if len(parts) < 2 {
			return nil, fmt.Errorf("get requires a key")
		}
		key := strings.TrimSpace(parts[1])
		if !isValidKey(key) {
			return nil, fmt.Errorf("invalid key format")
		}
		return &Command{Type: CmdGet, Key: key}, nil

	case CmdDelete:
		if len(parts) < 2 {
			return nil, fmt.Errorf("delete requires a key")
		}
		key := strings.TrimSpace(parts[1])
		if !isValidKey(key) {
			return nil, fmt.Errorf("invalid key format")
		}
		return &Command{Type: CmdDelete, Key: key}, nil

	case CmdSet:
		if len(parts) < 2 {
			return nil, fmt.Errorf("set requires key and value")
		}
		kv := strings.SplitN(parts[1], "|", 2)
		if len(kv) < 2 {
			return nil, fmt.Errorf("set format: set <key>|<value>")
		}
		key := strings.TrimSpace(kv[0])
		if !isValidKey(key) {
			return nil, fmt.Errorf("invalid key format")
		}
		value := parseValue(kv[1])
		return &Command{Type: CmdSet, Key: key, Value: value}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", verb)
	}
}

// parseValue decodes the typed wire form. A prefix that claims a numeric
// type but fails to parse falls back to Str rather than erroring — the
// prefix is advisory, the text is always valid as a string.
func parseValue(raw string) engine.Value {
	if rest, ok := strings.CutPrefix(raw, "i:"); ok {
		if n, err := strconv.ParseInt(rest, 10, 64); err == nil {
			return engine.Int64Value(n)
		}
	}
	if rest, ok := strings.CutPrefix(raw, "f:"); ok {
		if f, err := strconv.ParseFloat(rest, 64); err == nil {
			return engine.Float64Value(f)
		}
	}
	return engine.StrValue(raw)
}

// formatValue renders a Value back into its typed wire form.
func formatValue(v engine.Value) string {
	switch v.Kind {
	case engine.KindInt64:
		return "i:" + strconv.FormatInt(v.Int64, 10)
	case engine.KindFloat64:
		return "f:" + strconv.FormatFloat(v.Float64, 'g', -1, 64)
	default:
		return v.Str
	}
}

// isValidKey matches the teacher protocol's key grammar:
// ([a-z] | [A-Z] | [0-9] | "." | "-" | ":" | "_")+
func isValidKey(key string) bool {
	if len(key) == 0 {
		return false
	}
	for _, ch := range key {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '.' || ch == '-' || ch == ':' || ch == '_') {
			return false
		}
	}
	return true
}
