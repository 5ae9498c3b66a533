package evaluation

import "github.com/ai-agentic-browser/internal/model"

// gradeConfidence implements the mechanical rule-based grading of §4.5.
// oiChangePct15m and shockOIMin are both percentages on the same scale as
// §4.3.1's SHOCK_OI_MIN.
func gradeConfidence(execReason ExecReason, isB1Strong bool, oiChangePct15m *float64, lean15m, bias, lean1h model.Lean, shockOIMin float64) ConfidenceGrade {
	reversalConfirmed := execReason == ExecLongReversal || execReason == ExecShortReversal

	oiAligned := lean15m == bias
	oiNeutral := lean15m == model.LeanNeutral
	if oiChangePct15m != nil {
		abs := *oiChangePct15m
		if abs < 0 {
			abs = -abs
		}
		if abs < shockOIMin {
			oiNeutral = true
		}
	}
	oneHourAligned := lean1h == bias

	switch {
	case isB1Strong && reversalConfirmed && oiAligned && oneHourAligned:
		return GradeA
	case isB1Strong && reversalConfirmed && oiNeutral:
		return GradeB
	default:
		return GradeC
	}
}
