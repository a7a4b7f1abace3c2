package serial

import "strings"

// normalizePortName prefixes bare COM names with \\.\ so that ports above
// COM9 can be opened. Paths that already carry a device prefix are kept.
func normalizePortName(name string) string {
	if strings.HasPrefix(name, `\\.\`) || strings.HasPrefix(name, `\\?\`) || strings.ContainsAny(name, `\/`) {
		return name
	}
	return `\\.\` + name
}
