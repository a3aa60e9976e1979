package plan

import "strings"

// Substitute replaces every `${NAME}` occurrence in template with the
// corresponding value from vars. Unknown names are left literal, so a
// script referencing a variable the builder doesn't provide yet is not
// silently corrupted.
func Substitute(template string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(template))
	i := 0
	for i < len(template) {
		start := strings.Index(template[i:], "${")
		if start == -1 {
			b.WriteString(template[i:])
			break
		}
		start += i
		end := strings.Index(template[start+2:], "}")
		if end == -1 {
			b.WriteString(template[i:])
			break
		}
		end += start + 2
		name := template[start+2 : end]
		b.WriteString(template[i:start])
		if val, ok := vars[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(template[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// SubstituteMap applies Substitute to every value in m, returning a new
// map (m itself is never mutated).
func SubstituteMap(m map[string]string, vars map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Substitute(v, vars)
	}
	return out
}
