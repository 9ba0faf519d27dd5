package wizard

import (
	"context"
	"fmt"
	"strings"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/platform"
	"internship-intake/internal/models"
)

// UpdatePersonal replaces the personal and family fields. A nil income
// certificate keeps the one already attached.
func (c *Controller) UpdatePersonal(p models.PersonalDetails) error {
	if p.IncomeCertificate != nil && !p.IncomeCertificate.Present() {
		return errors.NewInvalidDocumentError("income certificate is empty")
	}
	return c.edit(func(r *models.IntakeRecord) error {
		cert := r.Personal.IncomeCertificate
		if p.IncomeCertificate != nil {
			cert = p.IncomeCertificate.Clone()
		}
		r.Personal = trimPersonal(p)
		r.Personal.IncomeCertificate = cert
		return nil
	})
}

func (c *Controller) AttachIncomeCertificate(doc *models.Document) error {
	if !doc.Present() {
		return errors.NewInvalidDocumentError("income certificate is empty")
	}
	return c.edit(func(r *models.IntakeRecord) error {
		r.Personal.IncomeCertificate = doc.Clone()
		return nil
	})
}

func trimPersonal(p models.PersonalDetails) models.PersonalDetails {
	p.FullName = strings.TrimSpace(p.FullName)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
	p.Mobile = strings.TrimSpace(p.Mobile)
	p.FatherName = strings.TrimSpace(p.FatherName)
	p.FatherMobile = strings.TrimSpace(p.FatherMobile)
	p.MotherName = strings.TrimSpace(p.MotherName)
	p.MotherMobile = strings.TrimSpace(p.MotherMobile)
	p.AnnualIncome = strings.TrimSpace(p.AnnualIncome)
	return p
}

// Autofill reports what a résumé parse filled in.
type Autofill struct {
	Source    string   `json:"source"` // full | skills | quick | none
	Name      string   `json:"name,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Education bool     `json:"education"`
}

const (
	AutofillFull   = "full"
	AutofillSkills = "skills"
	AutofillQuick  = "quick"
	AutofillNone   = "none"
)

// AttachResume stores the résumé and tries to autofill from it: the
// upload's quick parse first, then the full parse, then the skills-only
// parse. The document stays attached even when every parse fails; the
// returned RESUME_PARSE_FAILED only means nothing was filled in.
func (c *Controller) AttachResume(ctx context.Context, doc *models.Document) (Autofill, error) {
	if !doc.Present() {
		return Autofill{Source: AutofillNone}, errors.NewInvalidDocumentError("resume is empty")
	}
	if err := c.edit(func(r *models.IntakeRecord) error {
		r.Resume.Resume = doc.Clone()
		return nil
	}); err != nil {
		return Autofill{Source: AutofillNone}, err
	}

	studentID := c.session.StudentID
	var (
		quick *platform.QuickParse
		full  *platform.FullParse
		extra []string
	)
	err := c.external(ctx, func(ctx context.Context) error {
		var err error
		quick, err = c.deps.Resumes.QuickParseResume(ctx, studentID, doc)
		if err != nil {
			return errors.NewResumeParseFailedError(err)
		}
		full, err = c.deps.Resumes.FullParseResume(ctx, studentID)
		if err == nil {
			return nil
		}
		c.logger.Warn("full resume parse failed, falling back", map[string]interface{}{"error": err.Error()})
		if extra, err = c.deps.Resumes.ParseResumeSkills(ctx, studentID); err != nil {
			c.logger.Warn("skills parse failed, using upload result", map[string]interface{}{"error": err.Error()})
		}
		return nil
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeResumeParseFailed) {
			c.logger.Warn("resume parse failed", map[string]interface{}{"error": err.Error()})
		}
		return Autofill{Source: AutofillNone}, err
	}

	var af Autofill
	switch {
	case full != nil:
		af = Autofill{Source: AutofillFull, Name: full.Name, Skills: full.Skills.Array, Education: true}
	case len(extra) > 0:
		af = Autofill{Source: AutofillSkills, Name: quick.Autofill.Name, Skills: extra}
	default:
		af = Autofill{Source: AutofillQuick, Name: quick.Autofill.Name, Skills: quick.ParsedSkills}
	}

	err = c.edit(func(r *models.IntakeRecord) error {
		if r.Personal.FullName == "" && af.Name != "" {
			r.Personal.FullName = af.Name
		}
		if skills := cleanSkills(af.Skills); len(skills) > 0 {
			r.Resume.Skills = skills
		}
		if full != nil {
			applyEducation(&r.Resume, full.Education)
		}
		r.Resume.AutoFills++
		return nil
	})
	return af, err
}

// applyEducation fills the three blocks from a full parse. Attached
// marksheets are kept.
func applyEducation(r *models.ResumeDetails, e platform.ParsedEducation) {
	r.Tenth = models.EducationBlock{
		Level:    models.LevelTenth,
		Label:    models.LevelTenth.DefaultLabel(),
		Address:  e.TenthSchool,
		Score:    percent(e.TenthPct.String()),
		Document: r.Tenth.Document,
	}
	r.Twelfth = models.EducationBlock{
		Level:    models.LevelTwelfth,
		Label:    models.LevelTwelfth.DefaultLabel(),
		Address:  e.TwelfthSchool,
		Score:    percent(e.TwelfthPct.String()),
		Document: r.Twelfth.Document,
	}
	r.Degree = models.EducationBlock{
		Level:           models.LevelDegree,
		Qualification:   e.Qualification,
		Label:           e.Degree,
		InstitutionName: e.CollegeName,
		FieldOfStudy:    e.Branch,
		Score:           e.CGPA.String(),
		PassingYear:     e.GradYear.String(),
		Document:        r.Degree.Document,
	}
}

func percent(v string) string {
	if v == "" {
		return ""
	}
	return v + "%"
}

// EducationInput carries the editable text fields of one block.
type EducationInput struct {
	Qualification   string `json:"qualification"`
	Label           string `json:"label"`
	InstitutionName string `json:"institutionName"`
	Address         string `json:"address"`
	FieldOfStudy    string `json:"fieldOfStudy"`
	Score           string `json:"score"`
	PassingYear     string `json:"passingYear"`
}

// UpdateEducation replaces the text fields of one block, keeping its
// document. The qualification must be one the block offers.
func (c *Controller) UpdateEducation(level models.EducationLevel, in EducationInput) error {
	if in.Qualification != "" {
		if _, ok := models.FindOption(models.QualificationOptions(level), in.Qualification); !ok {
			return errors.NewInvalidEducationBlockError(
				fmt.Sprintf("qualification %q is not offered for %s", in.Qualification, level))
		}
	}
	if in.FieldOfStudy != "" && !level.HasFieldOfStudy() {
		return errors.NewInvalidEducationBlockError(fmt.Sprintf("%s has no field of study", level))
	}

	return c.edit(func(r *models.IntakeRecord) error {
		b := r.Resume.Block(level)
		if b == nil {
			return errors.NewInvalidEducationBlockError(fmt.Sprintf("unknown education level %q", level))
		}
		*b = models.EducationBlock{
			Level:           level,
			Qualification:   in.Qualification,
			Label:           strings.TrimSpace(in.Label),
			InstitutionName: strings.TrimSpace(in.InstitutionName),
			Address:         strings.TrimSpace(in.Address),
			FieldOfStudy:    strings.TrimSpace(in.FieldOfStudy),
			Score:           strings.TrimSpace(in.Score),
			PassingYear:     strings.TrimSpace(in.PassingYear),
			Document:        b.Document,
		}
		return nil
	})
}

// AttachMarksheet sets the document of one education block.
func (c *Controller) AttachMarksheet(level models.EducationLevel, doc *models.Document) error {
	if !doc.Present() {
		return errors.NewInvalidDocumentError(fmt.Sprintf("%s marksheet is empty", level))
	}
	return c.edit(func(r *models.IntakeRecord) error {
		b := r.Resume.Block(level)
		if b == nil {
			return errors.NewInvalidEducationBlockError(fmt.Sprintf("unknown education level %q", level))
		}
		b.Document = doc.Clone()
		return nil
	})
}

func (c *Controller) SetSkills(skills []string) error {
	return c.edit(func(r *models.IntakeRecord) error {
		r.Resume.Skills = cleanSkills(skills)
		return nil
	})
}

// cleanSkills trims, drops blanks and removes case-insensitive duplicates,
// keeping first-seen order.
func cleanSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
