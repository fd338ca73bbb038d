package ingest

import (
	"regexp"
	"strings"

	"github.com/hpungsan/asesor/internal/document"
)

// knownBrands is scanned in order; the first brand found in the filename wins.
var knownBrands = []string{
	"bobcat", "caterpillar", "jcb", "case", "john deere",
	"komatsu", "alkimax", "kubota", "new holland",
}

var modelRegex = regexp.MustCompile(`[A-Za-z]+\d+`)

// MetadataFromFilename derives marca, modelo, categoria and tipo from a file stem
// such as "Bobcat_S70_Especificaciones".
func MetadataFromFilename(stem string) map[string]string {
	meta := map[string]string{document.KeyCategoria: "general"}
	name := document.Normalize(strings.NewReplacer("_", " ", "-", " ").Replace(stem))

	for _, brand := range knownBrands {
		if strings.Contains(name, brand) {
			meta[document.KeyMarca] = titleCase(brand)
			break
		}
	}

	if m := modelRegex.FindString(stem); m != "" {
		meta[document.KeyModelo] = strings.ToUpper(m)
	}

	switch {
	case strings.Contains(name, "especificaciones") || strings.Contains(name, "specs"):
		meta[document.KeyCategoria] = "especificaciones"
	case strings.Contains(name, "compatibilidad") || strings.Contains(name, "compatible"):
		meta[document.KeyCategoria] = "compatibilidad"
	case strings.Contains(name, "manual"):
		meta[document.KeyCategoria] = "manual"
	case strings.Contains(name, "instalacion"):
		meta[document.KeyCategoria] = "instalacion"
	}

	switch {
	case strings.Contains(name, "manual") || strings.Contains(name, "operario") || strings.Contains(name, "owner"):
		meta[document.KeyTipo] = "manual_operacion"
	case strings.Contains(name, "especificaciones") || strings.Contains(name, "specs"):
		meta[document.KeyTipo] = "especificaciones"
	case strings.Contains(name, "compatibilidad"):
		meta[document.KeyTipo] = "compatibilidad"
	case strings.Contains(name, "instrucciones"):
		meta[document.KeyTipo] = "instrucciones"
	default:
		meta[document.KeyTipo] = "manual_tecnico"
	}

	return meta
}

// titleCase upper-cases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
