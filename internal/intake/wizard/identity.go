package wizard

import (
	"context"
	"strings"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/models"
)

// SetIdentifier records the national identifier. A different value drops
// any OTP state tied to the previous one.
func (c *Controller) SetIdentifier(identifier string) error {
	identifier = strings.TrimSpace(identifier)
	return c.edit(func(r *models.IntakeRecord) error {
		if r.Identity.Identifier == identifier {
			return nil
		}
		r.Identity.Identifier = identifier
		r.Identity.OTPSent = false
		r.Identity.Verification = nil
		return nil
	})
}

func (c *Controller) CaptchaText() string {
	return c.captcha.Text()
}

// RefreshCaptcha issues a new challenge and revokes an earlier pass.
func (c *Controller) RefreshCaptcha() (string, error) {
	text := c.captcha.Refresh()
	err := c.edit(func(r *models.IntakeRecord) error {
		r.Identity.CaptchaPassed = false
		return nil
	})
	return text, err
}

func (c *Controller) SolveCaptcha(input string) error {
	solveErr := c.captcha.Solve(input)
	if err := c.edit(func(r *models.IntakeRecord) error {
		r.Identity.CaptchaPassed = solveErr == nil
		return nil
	}); err != nil {
		return err
	}
	return solveErr
}

// SendOTP asks the identity service to send a one-time code. It needs an
// identifier and a passed CAPTCHA.
func (c *Controller) SendOTP(ctx context.Context) (string, error) {
	var identifier string
	var ready bool
	c.read(func(r *models.IntakeRecord) {
		identifier = r.Identity.Identifier
		ready = identifier != "" && r.Identity.CaptchaPassed
	})
	if !ready {
		return "", errors.NewIdentityNotReadyError("identifier and CAPTCHA are required before sending an OTP")
	}

	var message string
	err := c.external(ctx, func(ctx context.Context) error {
		var err error
		message, err = c.deps.Identity.SendOTP(ctx, identifier)
		if err != nil {
			c.logger.Warn("send otp failed", map[string]interface{}{"error": err.Error()})
			return errors.NewIdentityVerificationFailedError("send-otp", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	err = c.edit(func(r *models.IntakeRecord) error {
		if r.Identity.Identifier == identifier {
			r.Identity.OTPSent = true
			r.Identity.Verification = nil
		}
		return nil
	})
	return message, err
}

// VerifyOTP checks code and stores the structured outcome. A negative
// outcome is not an error; it just keeps the identity step incomplete.
func (c *Controller) VerifyOTP(ctx context.Context, code string) (models.VerificationResult, error) {
	code = strings.TrimSpace(code)
	var identifier string
	var sent bool
	c.read(func(r *models.IntakeRecord) {
		identifier = r.Identity.Identifier
		sent = r.Identity.OTPSent
	})
	if !sent {
		return models.VerificationResult{}, errors.NewIdentityNotReadyError("no OTP has been sent for this identifier")
	}
	if code == "" {
		return models.VerificationResult{}, errors.NewIdentityNotReadyError("otp is required")
	}

	var res models.VerificationResult
	err := c.external(ctx, func(ctx context.Context) error {
		var err error
		res, err = c.deps.Identity.VerifyOTP(ctx, identifier, code)
		if err != nil {
			c.logger.Warn("verify otp failed", map[string]interface{}{"error": err.Error()})
			return errors.NewIdentityVerificationFailedError("verify-otp", err)
		}
		return nil
	})
	if err != nil {
		return models.VerificationResult{}, err
	}

	err = c.edit(func(r *models.IntakeRecord) error {
		if r.Identity.Identifier == identifier {
			v := res
			r.Identity.Verification = &v
		}
		return nil
	})
	c.logger.Info("otp verified", map[string]interface{}{"verified": res.Verified, "eligible": res.Eligible})
	return res, err
}
