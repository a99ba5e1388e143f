package stock

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeLabel recorta espacios y lleva la etiqueta a NFC, de modo que "Café" escrito con
// tilde combinada y precompuesta indexe la misma celda. No cambia mayúsculas.
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NormalizeLabels normaliza una lista declarada, descarta vacíos y duplicados y conserva el orden.
func NormalizeLabels(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		n := NormalizeLabel(v)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
