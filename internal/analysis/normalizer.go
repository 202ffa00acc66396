package analysis

import (
	"encoding/json"
	"regexp"
	"strings"

	"labinsight/internal/domain"
)

// Fixed texts used when the model output cannot be trusted as-is.
const (
	FallbackTechnicalNotice = "Error: La respuesta de la IA no estaba en formato JSON válido y no pudo estructurarse."
	FallbackSummaryNotice   = "No se pudo procesar la respuesta. Consulte la sección de resultados simplificados."
	EmptyResponseNotice     = "El servicio de análisis no devolvió contenido."
	MissingSectionNotice    = "Sección no disponible en la respuesta del análisis."
	DefaultRejectionReason  = "El documento no corresponde a un resultado de laboratorio clínico válido."
)

var (
	fenceRe         = regexp.MustCompile("```(?:json|JSON)?")
	keyLabelRe      = regexp.MustCompile(`"?\b(?:isValid|errorMessage|interpretacionConceptos|resultadosSimplificados|resumenEjecutivo)\b"?\s*:\s*`)
	leadingPunctRe  = regexp.MustCompile(`^[\s{}\[\]",:]+`)
	trailingPunctRe = regexp.MustCompile(`[\s{}\[\]",:]+$`)
)

// Outcome is the normalized form of one raw model response.
type Outcome struct {
	Verdict domain.Verdict
	Stage   domain.RecoveryStage
	// Conformant is true when a JSON object was recovered and it satisfied the
	// strict output contract without any coercion.
	Conformant bool
}

// rawResult mirrors AnalysisResult with pointers so absent keys are observable.
type rawResult struct {
	IsValid                 *bool   `json:"isValid"`
	ErrorMessage            *string `json:"errorMessage"`
	InterpretacionConceptos *string `json:"interpretacionConceptos"`
	ResultadosSimplificados *string `json:"resultadosSimplificados"`
	ResumenEjecutivo        *string `json:"resumenEjecutivo"`
}

// Normalize converts untrusted model output into a verdict. It never fails:
// a direct parse is tried first, then the span between the first '{' and the
// last '}', and finally a degraded result is synthesized from the raw text.
func Normalize(raw string) Outcome {
	if r, conformant, ok := decodeObject(raw); ok {
		if v, usable := coerce(r); usable {
			return Outcome{Verdict: v, Stage: domain.StageDirect, Conformant: conformant}
		}
		return fallback(raw)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if r, conformant, ok := decodeObject(raw[start : end+1]); ok {
			if v, usable := coerce(r); usable {
				return Outcome{Verdict: v, Stage: domain.StageEmbedded, Conformant: conformant}
			}
		}
	}

	return fallback(raw)
}

// decodeObject parses s as a single JSON object in the AnalysisResult shape.
func decodeObject(s string) (*rawResult, bool, bool) {
	var generic any
	if err := json.Unmarshal([]byte(s), &generic); err != nil {
		return nil, false, false
	}
	if _, isObject := generic.(map[string]any); !isObject {
		return nil, false, false
	}

	var r rawResult
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, false, false
	}
	return &r, conforms(generic), true
}

// coerce applies the missing-field defaults. A result without a validity flag
// or with isValid=true is only usable when at least one section has content.
func coerce(r *rawResult) (domain.Verdict, bool) {
	if r.IsValid != nil && !*r.IsValid {
		reason := deref(r.ErrorMessage)
		if strings.TrimSpace(reason) == "" {
			reason = DefaultRejectionReason
		}
		return domain.Invalid{Reason: reason}, true
	}

	technical := deref(r.InterpretacionConceptos)
	simplified := deref(r.ResultadosSimplificados)
	summary := deref(r.ResumenEjecutivo)
	if isBlank(technical) && isBlank(simplified) && isBlank(summary) {
		return nil, false
	}

	return domain.Valid{
		Technical:  orNotice(technical),
		Simplified: orNotice(simplified),
		Summary:    orNotice(summary),
	}, true
}

func fallback(raw string) Outcome {
	simplified := CleanRawText(raw)
	if isBlank(simplified) {
		simplified = EmptyResponseNotice
	}
	return Outcome{
		Verdict: domain.Valid{
			Technical:  FallbackTechnicalNotice,
			Simplified: simplified,
			Summary:    FallbackSummaryNotice,
		},
		Stage: domain.StageFallback,
	}
}

// CleanRawText strips code fences, JSON key labels and surrounding JSON
// punctuation from raw model output, and turns literal "\n" escapes into line
// breaks.
func CleanRawText(raw string) string {
	s := fenceRe.ReplaceAllString(raw, "")
	s = keyLabelRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `\r\n`, "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = leadingPunctRe.ReplaceAllString(s, "")
	s = trailingPunctRe.ReplaceAllString(s, "")
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func orNotice(s string) string {
	if isBlank(s) {
		return MissingSectionNotice
	}
	return s
}
