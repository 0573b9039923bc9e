package roles

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalización de roles. Los tokens llegan en formatos heredados distintos
// según el emisor del JWT: un rol suelto ("admin"), CSV ("jefe, coordinador")
// o arreglo JSON (`["Jefe","USUARIO"]`), con mayúsculas y tildes variables
// ("Administración" vs "administracion"). Todo se reduce a un slice único de
// tokens en minúscula y sin diacríticos; el PermissionGate consume el
// resultado y nunca ve los formatos crudos.

// foldAccents descompone (NFD), quita marcas diacríticas y recompone (NFC).
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize convierte la representación cruda de roles en un slice ordenado de
// tokens únicos normalizados. Tolera JSON array, CSV y string suelto; los
// tokens vacíos se descartan.
func Normalize(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var tokens []string
	if strings.HasPrefix(raw, "[") {
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			tokens = arr
		}
	}
	if tokens == nil {
		tokens = strings.Split(raw, ",")
	}

	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		n := NormalizeToken(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NormalizeToken normaliza un rol individual: recorta, baja a minúscula y
// pliega diacríticos ("Administración" → "administracion").
func NormalizeToken(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return ""
	}
	folded, _, err := transform.String(foldAccents, t)
	if err != nil {
		return t
	}
	return folded
}
