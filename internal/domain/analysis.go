package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisResult is the wire shape of an interpretation returned to clients and
// requested from the generation provider.
type AnalysisResult struct {
	IsValid                 bool   `json:"isValid"`
	ErrorMessage            string `json:"errorMessage"`
	InterpretacionConceptos string `json:"interpretacionConceptos"`
	ResultadosSimplificados string `json:"resultadosSimplificados"`
	ResumenEjecutivo        string `json:"resumenEjecutivo"`
}

// Verdict is the outcome of normalizing a model response. It is either Valid or
// Invalid; no other implementations exist.
type Verdict interface {
	// Result renders the verdict in its wire shape.
	Result() AnalysisResult
	isVerdict()
}

// Valid holds the three narrative sections of an accepted lab report.
type Valid struct {
	Technical  string
	Simplified string
	Summary    string
}

func (v Valid) Result() AnalysisResult {
	return AnalysisResult{
		IsValid:                 true,
		InterpretacionConceptos: v.Technical,
		ResultadosSimplificados: v.Simplified,
		ResumenEjecutivo:        v.Summary,
	}
}

func (Valid) isVerdict() {}

// Invalid holds the reason a document did not qualify as a lab report.
type Invalid struct {
	Reason string
}

func (v Invalid) Result() AnalysisResult {
	return AnalysisResult{ErrorMessage: v.Reason}
}

func (Invalid) isVerdict() {}

// RecoveryStage names the normalizer stage that produced a verdict.
type RecoveryStage string

const (
	StageDirect   RecoveryStage = "direct"
	StageEmbedded RecoveryStage = "embedded"
	StageFallback RecoveryStage = "fallback"
)

// TokenUsage reports provider token accounting for one generation call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Analysis is the request-level outcome of a successful pipeline run.
type Analysis struct {
	ID             uuid.UUID
	Filename       string
	Pages          int
	ProcessingTime time.Duration
	Model          string
	Tokens         TokenUsage
	Stage          RecoveryStage
	Result         AnalysisResult
}

// AnalysisRecord is an archived analysis.
type AnalysisRecord struct {
	ID                      uuid.UUID `db:"id" json:"id"`
	Filename                string    `db:"filename" json:"filename"`
	FileSize                int64     `db:"file_size" json:"file_size"`
	Pages                   int       `db:"pages" json:"pages"`
	Model                   string    `db:"model" json:"model"`
	Stage                   string    `db:"recovery_stage" json:"recovery_stage"`
	IsValid                 bool      `db:"is_valid" json:"isValid"`
	ErrorMessage            string    `db:"error_message" json:"errorMessage"`
	InterpretacionConceptos string    `db:"interpretacion_conceptos" json:"interpretacionConceptos"`
	ResultadosSimplificados string    `db:"resultados_simplificados" json:"resultadosSimplificados"`
	ResumenEjecutivo        string    `db:"resumen_ejecutivo" json:"resumenEjecutivo"`
	InputTokens             int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens            int       `db:"output_tokens" json:"output_tokens"`
	ProcessingMS            int64     `db:"processing_ms" json:"processing_ms"`
	S3Bucket                string    `db:"s3_bucket" json:"-"`
	S3Key                   string    `db:"s3_key" json:"-"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}
