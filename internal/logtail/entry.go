package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one parsed log line. Lines that are neither logrus text nor JSON
// keep only Raw.
type Entry struct {
	Time      time.Time
	Level     logrus.Level
	Component string
	Message   string
	Error     string
	Fields    map[string]string
	Raw       string
	Parsed    bool
}

// Parse decodes a line written by either logrus formatter.
func Parse(line string) Entry {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		if e, ok := parseJSON(trimmed); ok {
			e.Raw = line
			return e
		}
	}
	if e, ok := parseText(trimmed); ok {
		e.Raw = line
		return e
	}
	return Entry{Raw: line, Level: logrus.InfoLevel}
}

func parseJSON(line string) (Entry, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return Entry{}, false
	}
	kv := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			kv[k] = val
		default:
			kv[k] = fmt.Sprint(val)
		}
	}
	return fromPairs(kv)
}

// parseText reads logfmt pairs as logrus.TextFormatter writes them:
// key=value with values quoted via strconv.Quote when needed.
func parseText(line string) (Entry, bool) {
	kv := make(map[string]string)
	rest := line
	for rest != "" {
		rest = strings.TrimLeft(rest, " ")
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsRune(rest[:eq], ' ') {
			return Entry{}, false
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return Entry{}, false
			}
			value, _ = strconv.Unquote(quoted)
			rest = rest[len(quoted):]
		} else if sp := strings.IndexByte(rest, ' '); sp >= 0 {
			value, rest = rest[:sp], rest[sp:]
		} else {
			value, rest = rest, ""
		}
		kv[key] = value
	}
	return fromPairs(kv)
}

func fromPairs(kv map[string]string) (Entry, bool) {
	levelStr, ok := kv["level"]
	if !ok {
		return Entry{}, false
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return Entry{}, false
	}

	e := Entry{
		Level:     level,
		Component: kv["component"],
		Message:   kv["msg"],
		Error:     kv[logrus.ErrorKey],
		Parsed:    true,
	}
	if ts, ok := kv["time"]; ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	for _, k := range []string{"time", "level", "msg", "component", logrus.ErrorKey} {
		delete(kv, k)
	}
	if len(kv) > 0 {
		e.Fields = kv
	}
	return e, true
}

// FieldKeys returns the extra field names in sorted order.
func (e Entry) FieldKeys() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filter selects entries by component and minimum severity. The zero value
// matches everything.
type Filter struct {
	Components []string
	MinLevel   string // empty matches all levels
}

// Match reports whether e passes the filter. Unparsed lines pass only when
// no filter is set.
func (f Filter) Match(e Entry) (bool, error) {
	if len(f.Components) == 0 && f.MinLevel == "" {
		return true, nil
	}
	if !e.Parsed {
		return false, nil
	}
	if f.MinLevel != "" {
		minLevel, err := logrus.ParseLevel(f.MinLevel)
		if err != nil {
			return false, fmt.Errorf("invalid level %q: %w", f.MinLevel, err)
		}
		// logrus levels count down: panic is 0, trace is 6.
		if e.Level > minLevel {
			return false, nil
		}
	}
	if len(f.Components) == 0 {
		return true, nil
	}
	for _, c := range f.Components {
		if strings.EqualFold(c, e.Component) {
			return true, nil
		}
	}
	return false, nil
}
