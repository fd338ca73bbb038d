package docstore

import "github.com/hpungsan/asesor/internal/document"

// ExampleCorpus returns the built-in documents used when no knowledge source
// could be loaded, so search never runs against an empty store.
func ExampleCorpus() []document.Document {
	return []document.Document{
		document.New(
			"doc_001",
			"Bobcat S70: Capacidad de carga 320kg, sistema hidráulico 45L/min, compatible con baldes hasta 0.3m³",
			map[string]string{"marca": "Bobcat", "modelo": "S70", "categoria": "especificaciones"},
		),
		document.New(
			"doc_002",
			"Caterpillar 242D: Sistema hidráulico de alta presión, compatible con martillos hasta 500kg",
			map[string]string{"marca": "Caterpillar", "modelo": "242D", "categoria": "compatibilidad"},
		),
	}
}
