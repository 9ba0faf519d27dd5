package models

import "time"

type Step int

const (
	StepIdentity Step = iota + 1
	StepPersonal
	StepResume
	StepPreferences
	StepConfirmation
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepPersonal:
		return "personal"
	case StepResume:
		return "resume"
	case StepPreferences:
		return "preferences"
	case StepConfirmation:
		return "confirmation"
	case StepSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// VerificationResult is the outcome of an OTP check.
type VerificationResult struct {
	Verified bool   `json:"verified"`
	Eligible bool   `json:"eligible"`
	Message  string `json:"message,omitempty"`
}

func (v *VerificationResult) Passed() bool {
	return v != nil && v.Verified && v.Eligible
}

type IdentityDetails struct {
	Identifier    string              `json:"identifier" validate:"required"`
	CaptchaPassed bool                `json:"captchaPassed"`
	OTPSent       bool                `json:"otpSent"`
	Verification  *VerificationResult `json:"verification,omitempty"`
}

type PersonalDetails struct {
	FullName          string    `json:"fullName" validate:"required"`
	DateOfBirth       string    `json:"dateOfBirth" validate:"required"`
	Mobile            string    `json:"mobile" validate:"required"`
	FatherName        string    `json:"fatherName" validate:"required"`
	FatherMobile      string    `json:"fatherMobile" validate:"required"`
	MotherName        string    `json:"motherName" validate:"required"`
	MotherMobile      string    `json:"motherMobile" validate:"required"`
	AnnualIncome      string    `json:"annualIncome" validate:"required"`
	IncomeCertificate *Document `json:"incomeCertificate,omitempty" validate:"required"`
}

type ResumeDetails struct {
	Resume    *Document      `json:"resume,omitempty"`
	Skills    []string       `json:"skills,omitempty"`
	Degree    EducationBlock `json:"degree"`
	Twelfth   EducationBlock `json:"twelfth"`
	Tenth     EducationBlock `json:"tenth"`
	AutoFills int            `json:"autoFills,omitempty"`
}

func NewResumeDetails() ResumeDetails {
	return ResumeDetails{
		Degree:  NewEducationBlock(LevelDegree),
		Twelfth: NewEducationBlock(LevelTwelfth),
		Tenth:   NewEducationBlock(LevelTenth),
	}
}

// Block returns a pointer to the block for level.
func (r *ResumeDetails) Block(level EducationLevel) *EducationBlock {
	switch level {
	case LevelDegree:
		return &r.Degree
	case LevelTwelfth:
		return &r.Twelfth
	case LevelTenth:
		return &r.Tenth
	}
	return nil
}

// IntakeRecord is the mutable aggregate the wizard builds across steps.
type IntakeRecord struct {
	Identity    IdentityDetails
	Personal    PersonalDetails
	Resume      ResumeDetails
	Preferences PreferenceSet
}

func NewIntakeRecord() *IntakeRecord {
	return &IntakeRecord{
		Resume:      NewResumeDetails(),
		Preferences: NewPreferenceSet(),
	}
}

// IntakeSnapshot is a deep copy of a record taken before an external
// commit. Nothing in it aliases the record it came from.
type IntakeSnapshot struct {
	StudentID   string          `json:"studentId"`
	SessionID   string          `json:"sessionId"`
	Email       string          `json:"email,omitempty"`
	TakenAt     time.Time       `json:"takenAt"`
	Identity    IdentityDetails `json:"identity"`
	Personal    PersonalDetails `json:"personal"`
	Resume      ResumeDetails   `json:"resume"`
	Preferences PreferenceSet   `json:"preferences"`
}

func (r *IntakeRecord) Snapshot(studentID, sessionID, email string) IntakeSnapshot {
	identity := r.Identity
	if r.Identity.Verification != nil {
		v := *r.Identity.Verification
		identity.Verification = &v
	}

	personal := r.Personal
	personal.IncomeCertificate = r.Personal.IncomeCertificate.Clone()

	resume := r.Resume
	resume.Resume = r.Resume.Resume.Clone()
	resume.Skills = append([]string(nil), r.Resume.Skills...)
	resume.Degree = r.Resume.Degree.Clone()
	resume.Twelfth = r.Resume.Twelfth.Clone()
	resume.Tenth = r.Resume.Tenth.Clone()

	return IntakeSnapshot{
		StudentID:   studentID,
		SessionID:   sessionID,
		Email:       email,
		TakenAt:     time.Now().UTC(),
		Identity:    identity,
		Personal:    personal,
		Resume:      resume,
		Preferences: r.Preferences.Clone(),
	}
}
