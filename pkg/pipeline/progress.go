package pipeline

// Step names for the five intra-session analysis phases, in order.
const (
	StepStatic          = "static analysis"
	StepFeatures        = "feature extraction"
	StepInference       = "inference"
	StepScoring         = "scoring"
	StepRecommendations = "recommendation"
)

// Steps returns the intra-session step vocabulary in pipeline order.
func Steps() []string {
	return []string{StepStatic, StepFeatures, StepInference, StepScoring, StepRecommendations}
}

// Progress is one batch progress event. Percent is monotonically
// non-decreasing within one batch invocation.
type Progress struct {
	SessionIndex int     `json:"session_index"`
	SessionTotal int     `json:"session_total"`
	Step         string  `json:"step"`
	StepCurrent  int     `json:"step_current"`
	StepTotal    int     `json:"step_total"`
	Percent      float64 `json:"percent"`
}

// ProgressFunc receives progress events. A nil ProgressFunc disables
// reporting. Implementations must not block: the pipeline calls them
// synchronously between steps.
type ProgressFunc func(Progress)

// reporter emits the before/after step events for one session within a
// batch, keeping percent monotone across sessions.
type reporter struct {
	fn           ProgressFunc
	sessionIndex int // 1-based
	sessionTotal int
}

func (r reporter) emit(step string, stepCurrent int, intraFraction float64) {
	if r.fn == nil {
		return
	}
	completed := float64(r.sessionIndex-1) + intraFraction
	r.fn(Progress{
		SessionIndex: r.sessionIndex,
		SessionTotal: r.sessionTotal,
		Step:         step,
		StepCurrent:  stepCurrent,
		StepTotal:    stepTotal,
		Percent:      100 * completed / float64(r.sessionTotal),
	})
}

func (r reporter) before(stepIndex int, step string) {
	r.emit(step, stepIndex, float64(stepIndex-1)/stepTotal)
}

func (r reporter) after(stepIndex int, step string) {
	r.emit(step, stepIndex, float64(stepIndex)/stepTotal)
}
