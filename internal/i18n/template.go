package i18n

import "regexp"

// placeholderRe matches {{name}} markers in translation values.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Render substitutes {{name}} markers with the supplied variables. Markers
// without a matching variable stay in the output so operators can spot gaps
// in the payload instead of shipping silently truncated messages.
func Render(value string, vars map[string]string) string {
	if len(vars) == 0 || value == "" {
		return value
	}

	return placeholderRe.ReplaceAllStringFunc(value, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the distinct marker names found in a translation value.
func Placeholders(value string) []string {
	matches := placeholderRe.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var names []string
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
