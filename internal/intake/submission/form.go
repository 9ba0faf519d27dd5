package submission

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"internship-intake/internal/common/platform"
	"internship-intake/internal/models"
)

// BuildProfileForm lays a snapshot out as the profile-commit multipart
// form. Scores drop a trailing "%" and blank numerics become "0".
func BuildProfileForm(snap models.IntakeSnapshot) platform.ProfileForm {
	p := snap.Personal
	r := snap.Resume

	fields := map[string]string{
		"name":           p.FullName,
		"dob":            p.DateOfBirth,
		"aadhaar_number": snap.Identity.Identifier,
		"student_mobile": p.Mobile,
		"father_name":    p.FatherName,
		"father_mobile":  p.FatherMobile,
		"mother_name":    p.MotherName,
		"mother_mobile":  p.MotherMobile,
		"annual_income":  models.NormalizeNumeric(p.AnnualIncome),
		"skills":         strings.Join(r.Skills, ","),

		"college_name":  r.Degree.InstitutionName,
		"degree":        r.Degree.Label,
		"qualification": r.Degree.Qualification,
		"branch":        r.Degree.FieldOfStudy,
		"cgpa":          r.Degree.NormalizedScore(),
		"grad_year":     r.Degree.NormalizedYear(),

		"twelfth_school":        r.Twelfth.InstitutionName,
		"twelfth_qualification": r.Twelfth.Qualification,
		"twelfth_pct":           r.Twelfth.NormalizedScore(),
		"twelfth_year":          r.Twelfth.NormalizedYear(),

		"tenth_school":  firstNonEmpty(r.Tenth.InstitutionName, r.Tenth.Address),
		"tenth_address": r.Tenth.Address,
		"tenth_pct":     r.Tenth.NormalizedScore(),
		"tenth_year":    r.Tenth.NormalizedYear(),
	}

	for i := 0; i < 3; i++ {
		loc := snap.Preferences.Slots[i].Location
		if loc != nil {
			fields["location_pref"+string(rune('1'+i))] = loc.Label
		}
	}

	form := platform.ProfileForm{Fields: fields}
	for _, d := range []struct {
		field string
		doc   *models.Document
	}{
		{"resume", r.Resume},
		{"income_certificate", p.IncomeCertificate},
		{"degree_marksheet", r.Degree.Document},
		{"twelfth_marksheet", r.Twelfth.Document},
		{"tenth_marksheet", r.Tenth.Document},
	} {
		if part, ok := platform.DocumentPart(d.field, d.doc); ok {
			form.Files = append(form.Files, part)
		}
	}
	return form
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// digestForm hashes fields in key order plus each file's name and bytes.
func digestForm(form platform.ProfileForm) string {
	h := sha256.New()
	keys := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(form.Fields[k]))
		h.Write([]byte{0})
	}
	for _, f := range form.Files {
		h.Write([]byte(f.Field))
		h.Write([]byte{0})
		h.Write([]byte(f.FileName))
		h.Write([]byte{0})
		h.Write(f.Data)
	}
	return shortHex(h.Sum(nil))
}

func digestJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return shortHex(sum[:])
}

func shortHex(b []byte) string {
	return hex.EncodeToString(b)[:16]
}
