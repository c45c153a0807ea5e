// Package placeholder implements the `$(NAME)` substitution used by
// every generated text file.
//
// Substitution is a single scan over the template. Each token is looked
// up once and its value is copied to the output without being scanned
// again, so a value that happens to contain another token is emitted
// verbatim instead of cascading into a second replacement.
//
// A token is `$(` followed by one or more ASCII letters, digits or
// underscores and a closing `)`. Anything else that starts with `$(`,
// such as make's `$(shell ...)` or `$(SOURCES:.cc=.o)`, is left alone,
// as are well-formed tokens with no entry in the map.
package placeholder

import "strings"

// Entry is a single name and its replacement value.
type Entry struct {
	Name  string
	Value string
}

// Map is an ordered, immutable set of placeholder entries. The zero
// value is an empty map.
type Map struct {
	names  []string
	values map[string]string
}

// NewMap builds a Map from entries. A later entry with the same name
// replaces the value of the earlier one but keeps its position.
func NewMap(entries ...Entry) Map {
	m := Map{values: make(map[string]string, len(entries))}
	for _, e := range entries {
		m = m.set(e.Name, e.Value)
	}
	return m
}

// With returns a copy of m with name set to value. m is not modified.
func (m Map) With(name, value string) Map {
	c := Map{
		names:  make([]string, len(m.names), len(m.names)+1),
		values: make(map[string]string, len(m.values)+1),
	}
	copy(c.names, m.names)
	for k, v := range m.values {
		c.values[k] = v
	}
	return c.set(name, value)
}

func (m Map) set(name, value string) Map {
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = value
	return m
}

// Lookup returns the value for name.
func (m Map) Lookup(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Names returns the entry names in insertion order.
func (m Map) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len is the number of entries.
func (m Map) Len() int {
	return len(m.names)
}

// Token returns the literal token for name, eg: `$(NAME)`.
func Token(name string) string {
	return "$(" + name + ")"
}

// Expand returns text with every known token replaced by its value.
func (m Map) Expand(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		name, end, ok := tokenAt(text, i)
		if ok {
			if v, found := m.values[name]; found {
				b.WriteString(v)
				i = end
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}

	return b.String()
}

// Unresolved returns the distinct well-formed tokens in text that have
// no entry in m, in order of first appearance.
func (m Map) Unresolved(text string) []string {
	var out []string
	seen := make(map[string]bool)

	for i := 0; i < len(text); i++ {
		name, _, ok := tokenAt(text, i)
		if !ok {
			continue
		}
		if _, found := m.values[name]; found || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}

	return out
}

// tokenAt reports whether a token starts at text[i]. It returns the
// token name and the index just past the closing paren.
func tokenAt(text string, i int) (string, int, bool) {
	if !strings.HasPrefix(text[i:], "$(") {
		return "", 0, false
	}

	start := i + 2
	j := start
	for j < len(text) && isNameByte(text[j]) {
		j++
	}

	if j == start || j >= len(text) || text[j] != ')' {
		return "", 0, false
	}

	return text[start:j], j + 1, true
}

func isNameByte(c byte) bool {
	return c == '_' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
