package analysis

import (
	"fmt"

	"labinsight/internal/domain"
)

// Gate admits valid verdicts and turns an invalid one into a
// *domain.DocumentRejectedError carrying the model's explanation. It must only
// be applied to verdicts produced by Normalize.
func Gate(v domain.Verdict) (domain.Valid, error) {
	switch verdict := v.(type) {
	case domain.Valid:
		return verdict, nil
	case domain.Invalid:
		return domain.Valid{}, &domain.DocumentRejectedError{Reason: verdict.Reason}
	default:
		return domain.Valid{}, fmt.Errorf("unexpected verdict type %T", v)
	}
}
