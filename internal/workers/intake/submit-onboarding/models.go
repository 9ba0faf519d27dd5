package submitonboarding

// Input is the job payload written when an interactive submission failed
// after its profile was saved. The snapshot itself is parked in the
// snapshot store under the saga ID.
type Input struct {
	SagaID string `json:"sagaId"`
}

type Output struct {
	ProfileID            string   `json:"profileId"`
	PreferencesSubmitted int      `json:"preferencesSubmitted"`
	PreferencesSkipped   bool     `json:"preferencesSkipped"`
	ScoresComputed       bool     `json:"scoresComputed"`
	ReusedPhases         []string `json:"reusedPhases,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
	CompletedAt          string   `json:"completedAt"` // ISO 8601
}
