package shapekey

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

const DefaultMaxNameLen = 63

// NameTable maps full flex names to names short enough for the target tool.
type NameTable struct {
	MaxLen int
	names  []string
	short  map[string]string
	used   map[string]bool
}

func NewNameTable(maxLen int) *NameTable {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLen
	}
	return &NameTable{MaxLen: maxLen, short: map[string]string{}, used: map[string]bool{}}
}

// Add registers name and returns its short form.
// Short forms are unique, a colliding one gets a numeric suffix.
func (t *NameTable) Add(name string) string {
	if s, ok := t.short[name]; ok {
		return s
	}
	s := truncate(name, t.MaxLen)
	for i := 1; t.used[s]; i++ {
		suffix := strconv.Itoa(i)
		s = truncate(name, t.MaxLen-len(suffix)) + suffix
	}
	t.used[s] = true
	t.short[name] = s
	t.names = append(t.names, name)
	return s
}

func (t *NameTable) Short(name string) (string, bool) {
	s, ok := t.short[name]
	return s, ok
}

// WriteTo writes "short->full" lines in registration order.
func (t *NameTable) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, name := range t.names {
		c, err := fmt.Fprintf(w, "%s->%s\n", t.short[name], name)
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n < 0 {
		n = 0
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
