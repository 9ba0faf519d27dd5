package wizard

import (
	"internship-intake/internal/common/validation"
	"internship-intake/internal/intake/preference"
	"internship-intake/internal/models"
)

// Missing lists what step still needs before Advance succeeds. An empty
// result means the step is complete. Confirmation has no predicate.
func Missing(step models.Step, r *models.IntakeRecord) []string {
	switch step {
	case models.StepIdentity:
		return identityMissing(r.Identity)
	case models.StepPersonal:
		return personalMissing(r.Personal)
	case models.StepResume:
		return resumeMissing(r.Resume)
	case models.StepPreferences:
		if !preference.HasComplete(r.Preferences) {
			return []string{"preferences"}
		}
	}
	return nil
}

func identityMissing(id models.IdentityDetails) []string {
	missing := validation.Struct(id).Fields()
	if !id.CaptchaPassed {
		missing = append(missing, "captcha")
	}
	if !id.Verification.Passed() {
		missing = append(missing, "verification")
	}
	return missing
}

func personalMissing(p models.PersonalDetails) []string {
	missing := validation.Struct(p).Fields()
	if p.IncomeCertificate != nil && !p.IncomeCertificate.Present() {
		missing = append(missing, "incomeCertificate")
	}
	return missing
}

// Only the tenth block gates this step; degree and twelfth stay optional.
func resumeMissing(r models.ResumeDetails) []string {
	var missing []string
	if !r.Resume.Present() {
		missing = append(missing, "resume")
	}
	if r.Tenth.Address == "" {
		missing = append(missing, "tenth.address")
	}
	if r.Tenth.Label == "" {
		missing = append(missing, "tenth.label")
	}
	if !r.Tenth.Document.Present() {
		missing = append(missing, "tenth.document")
	}
	return missing
}
