// Package platform is the HTTP client for the internship-matching platform:
// catalog lookups, identity verification, résumé parsing and the three
// submission endpoints.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"internship-intake/internal/common/config"
	httpclient "internship-intake/internal/common/http"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/models"
)

const IdempotencyHeader = "Idempotency-Key"

type Client struct {
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg config.PlatformConfig, log logger.Logger) *Client {
	hc := httpclient.NewClient(cfg.BaseURL, config.GetDuration(cfg.Timeout))
	if cfg.APIKey != "" {
		hc.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Client{
		http:   hc,
		logger: logger.ForComponent(log, "platform-client"),
	}
}

// Catalog

type sectorsResponse struct {
	Sectors []models.Option `json:"sectors"`
}

type rolesResponse struct {
	Roles []models.Option `json:"roles"`
}

type locationsResponse struct {
	Locations []models.Option `json:"locations"`
}

func (c *Client) Sectors(ctx context.Context) ([]models.Option, error) {
	var out sectorsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/sectors", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch sectors: %w", err)
	}
	return out.Sectors, nil
}

func (c *Client) Roles(ctx context.Context, sector string) ([]models.Option, error) {
	q := url.Values{"sector": {sector}}
	var out rolesResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/roles?"+q.Encode(), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch roles for %q: %w", sector, err)
	}
	return out.Roles, nil
}

func (c *Client) Locations(ctx context.Context, sector, role string) ([]models.Option, error) {
	q := url.Values{"sector": {sector}, "role": {role}}
	var out locationsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/locations?"+q.Encode(), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch locations for %q/%q: %w", sector, role, err)
	}
	return out.Locations, nil
}

// Identity

type otpRequest struct {
	Aadhaar string `json:"aadhaar"`
	OTP     string `json:"otp,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type verifyResponse struct {
	Verified *bool  `json:"verified"`
	Eligible *bool  `json:"eligible"`
	Message  string `json:"message"`
}

func (c *Client) SendOTP(ctx context.Context, aadhaar string) (string, error) {
	var out messageResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/send-otp", nil, otpRequest{Aadhaar: aadhaar}, &out); err != nil {
		return "", fmt.Errorf("failed to send otp: %w", err)
	}
	return out.Message, nil
}

// VerifyOTP returns a structured result. Servers that only send a message
// are interpreted from its text.
func (c *Client) VerifyOTP(ctx context.Context, aadhaar, otp string) (models.VerificationResult, error) {
	var out verifyResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/verify-otp", nil, otpRequest{Aadhaar: aadhaar, OTP: otp}, &out); err != nil {
		return models.VerificationResult{}, fmt.Errorf("failed to verify otp: %w", err)
	}

	if out.Verified != nil && out.Eligible != nil {
		return models.VerificationResult{Verified: *out.Verified, Eligible: *out.Eligible, Message: out.Message}, nil
	}

	res := InterpretLegacyMessage(out.Message)
	if out.Verified != nil {
		res.Verified = *out.Verified
	}
	if out.Eligible != nil {
		res.Eligible = *out.Eligible
	}
	return res, nil
}

// InterpretLegacyMessage derives verified/eligible from a message-only
// verify response.
func InterpretLegacyMessage(msg string) models.VerificationResult {
	upper := strings.ToUpper(msg)
	negated := strings.Contains(upper, "NOT ELIGIBLE") || strings.Contains(upper, "INELIGIBLE")
	return models.VerificationResult{
		Verified: strings.Contains(msg, "✅"),
		Eligible: strings.Contains(upper, "ELIGIBLE") && !negated,
		Message:  msg,
	}
}

// Résumé parsing

type QuickParse struct {
	Autofill struct {
		Name string `json:"name"`
	} `json:"autofill"`
	ParsedSkills []string `json:"parsed_skills"`
}

type FullParse struct {
	Name   string `json:"name"`
	Skills struct {
		Array []string `json:"array"`
		Count int      `json:"count"`
	} `json:"skills"`
	Education ParsedEducation `json:"education"`
}

type ParsedEducation struct {
	CollegeName   string     `json:"college_name"`
	Degree        string     `json:"degree"`
	Qualification string     `json:"qualification"`
	Branch        string     `json:"branch"`
	CGPA          flexString `json:"cgpa"`
	GradYear      flexString `json:"grad_year"`
	TwelfthSchool string     `json:"twelth_school"`
	TwelfthPct    flexString `json:"twelth_pct"`
	TenthSchool   string     `json:"tenth_school"`
	TenthPct      flexString `json:"tenth_pct"`
}

type skillsResponse struct {
	Skills []string `json:"skills"`
}

// QuickParseResume uploads the résumé and returns the name and skills the
// platform extracted.
func (c *Client) QuickParseResume(ctx context.Context, studentID string, doc *models.Document) (*QuickParse, error) {
	files := []httpclient.FilePart{{Field: "file", FileName: doc.Name, ContentType: doc.ContentType, Data: doc.Data}}
	var out QuickParse
	path := "/upload/resume/" + url.PathEscape(studentID)
	if err := c.http.PostMultipart(ctx, path, nil, nil, files, &out); err != nil {
		return nil, fmt.Errorf("failed to upload resume: %w", err)
	}
	return &out, nil
}

// FullParseResume parses the previously uploaded résumé, education included.
func (c *Client) FullParseResume(ctx context.Context, studentID string) (*FullParse, error) {
	var out FullParse
	path := "/student/" + url.PathEscape(studentID) + "/parse-resume-full"
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to parse resume: %w", err)
	}
	return &out, nil
}

func (c *Client) ParseResumeSkills(ctx context.Context, studentID string) ([]string, error) {
	var out skillsResponse
	path := "/student/" + url.PathEscape(studentID) + "/parse-resume-skills"
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to parse resume skills: %w", err)
	}
	return out.Skills, nil
}

// Submission

// ProfileForm is the multipart body of a profile commit.
type ProfileForm struct {
	Fields map[string]string
	Files  []httpclient.FilePart
}

type profileResponse struct {
	ProfileID flexString `json:"profile_id"`
	Message   string     `json:"message"`
}

type preferencesRequest struct {
	Preferences []models.SubmittedPreference `json:"preferences"`
}

func idempotency(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{IdempotencyHeader: key}
}

func (c *Client) CommitProfile(ctx context.Context, studentID string, form ProfileForm, idempotencyKey string) (string, error) {
	var out profileResponse
	path := "/student/profile/" + url.PathEscape(studentID)
	if err := c.http.PostMultipart(ctx, path, idempotency(idempotencyKey), form.Fields, form.Files, &out); err != nil {
		return "", err
	}
	if out.ProfileID == "" {
		return "", fmt.Errorf("profile commit returned no profile_id")
	}
	c.logger.Debug("profile committed", map[string]interface{}{"studentId": studentID, "profileId": string(out.ProfileID)})
	return string(out.ProfileID), nil
}

func (c *Client) CommitPreferences(ctx context.Context, studentID string, prefs []models.SubmittedPreference, idempotencyKey string) error {
	path := "/student/" + url.PathEscape(studentID) + "/preferences"
	return c.http.DoJSON(ctx, http.MethodPost, path, idempotency(idempotencyKey), preferencesRequest{Preferences: prefs}, nil)
}

func (c *Client) ComputeScores(ctx context.Context, studentID string, idempotencyKey string) error {
	path := "/student/" + url.PathEscape(studentID) + "/calculate-scores"
	return c.http.DoJSON(ctx, http.MethodPost, path, idempotency(idempotencyKey), nil, nil)
}

// DocumentPart turns a stored document into a multipart file field.
func DocumentPart(field string, doc *models.Document) (httpclient.FilePart, bool) {
	if !doc.Present() {
		return httpclient.FilePart{}, false
	}
	return httpclient.FilePart{Field: field, FileName: doc.Name, ContentType: doc.ContentType, Data: doc.Data}, true
}
