package retrieval

import (
	"fmt"
	"strings"
)

// Confidence levels produced by ValidateCompatibility.
const (
	ConfidenceNone     = 0.0
	ConfidenceNegative = 0.3
	ConfidenceDefault  = 0.8

	humanReviewBelow   = 0.5
	maxRecommendations = 3
)

var (
	positiveKeywords = []string{"compatible", "recomendado", "óptimo"}
	negativeKeywords = []string{"no compatible", "limitado", "restricción"}
)

// Compatibility is the outcome of ValidateCompatibility.
// Compatible is nil when there was nothing to judge from.
type Compatibility struct {
	Compatible      *bool    `json:"compatible"`
	Confidence      float64  `json:"confidence"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations"`
	RequiresHuman   bool     `json:"requires_human"`
}

// Specifications is the outcome of GetSpecifications.
type Specifications struct {
	Found          bool              `json:"found"`
	Marca          string            `json:"marca,omitempty"`
	Modelo         string            `json:"modelo,omitempty"`
	Specifications string            `json:"specifications,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Message        string            `json:"message,omitempty"`
}

// ValidateCompatibility judges whether implemento fits the given machine.
// Every matching negative document forces the result to incompatible; the
// last one seen decides, regardless of positives before it.
func (e *Engine) ValidateCompatibility(implemento, marca, modelo string) Compatibility {
	filters := map[string]string{"marca": marca}
	if modelo != "" {
		filters["modelo"] = modelo
	}
	query := fmt.Sprintf("compatibilidad %s %s %s", implemento, marca, modelo)

	results := e.search(KindCompatibility, query, filters, DefaultTopK)
	if len(results) == 0 {
		return Compatibility{
			Compatible:      nil,
			Confidence:      ConfidenceNone,
			Message:         "No hay información técnica disponible para validar compatibilidad",
			Recommendations: []string{},
			RequiresHuman:   true,
		}
	}

	compatible := true
	confidence := ConfidenceDefault
	recommendations := []string{}

	for _, r := range results {
		content := strings.ToLower(r.Document.Content)
		if containsAny(content, positiveKeywords) && len(recommendations) < maxRecommendations {
			recommendations = append(recommendations, r.Document.Content)
		}
		if containsAny(content, negativeKeywords) {
			compatible = false
			confidence = ConfidenceNegative
		}
	}

	return Compatibility{
		Compatible:      &compatible,
		Confidence:      confidence,
		Message:         fmt.Sprintf("Validación para %s en %s %s", implemento, marca, modelo),
		Recommendations: recommendations,
		RequiresHuman:   confidence < humanReviewBelow,
	}
}

// GetSpecifications returns the top-ranked specifications document for a machine.
func (e *Engine) GetSpecifications(marca, modelo string) Specifications {
	filters := map[string]string{"marca": marca, "categoria": "especificaciones"}
	if modelo != "" {
		filters["modelo"] = modelo
	}

	results := e.search(KindSpecifications, fmt.Sprintf("%s %s especificaciones", marca, modelo), filters, DefaultTopK)
	if len(results) == 0 {
		return Specifications{Found: false, Message: "No hay especificaciones disponibles"}
	}

	doc := results[0].Document
	return Specifications{
		Found:          true,
		Marca:          marca,
		Modelo:         modelo,
		Specifications: doc.Content,
		Metadata:       doc.Metadata,
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
