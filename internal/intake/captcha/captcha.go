// Package captcha is the local human check that gates sending an OTP.
package captcha

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"internship-intake/internal/common/errors"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Config struct {
	Length      int
	MaxAttempts int
	TTL         time.Duration
}

func DefaultConfig() Config {
	return Config{Length: 6, MaxAttempts: 3, TTL: 10 * time.Minute}
}

// Generator produces challenge text of length n.
type Generator func(n int) string

func RandomText(n int) string {
	var b strings.Builder
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(int64(time.Now().UnixNano() % int64(len(alphabet))))
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}

// Challenge holds the current text and attempt count. Exhausting the
// attempts or outliving the TTL swaps in a fresh text.
type Challenge struct {
	mu       sync.Mutex
	cfg      Config
	gen      Generator
	now      func() time.Time
	text     string
	attempts int
	issuedAt time.Time
	passed   bool
}

func New(cfg Config) *Challenge {
	return NewWithGenerator(cfg, RandomText, time.Now)
}

func NewWithGenerator(cfg Config, gen Generator, now func() time.Time) *Challenge {
	if cfg.Length <= 0 {
		cfg.Length = DefaultConfig().Length
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	c := &Challenge{cfg: cfg, gen: gen, now: now}
	c.reset()
	return c
}

func (c *Challenge) reset() {
	c.text = c.gen(c.cfg.Length)
	c.attempts = 0
	c.issuedAt = c.now()
	c.passed = false
}

// Text returns the challenge to display, refreshing it if it expired.
func (c *Challenge) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expired() {
		c.reset()
	}
	return c.text
}

// Refresh issues a new challenge and clears any earlier pass.
func (c *Challenge) Refresh() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return c.text
}

func (c *Challenge) Passed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passed
}

// Solve compares input case-insensitively. A wrong answer uses up an
// attempt; the last one regenerates the challenge.
func (c *Challenge) Solve(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.expired() {
		c.reset()
		return errors.NewCaptchaExhaustedError()
	}

	if strings.EqualFold(strings.TrimSpace(input), c.text) {
		c.passed = true
		return nil
	}

	c.passed = false
	c.attempts++
	left := c.cfg.MaxAttempts - c.attempts
	if left <= 0 {
		c.reset()
		return errors.NewCaptchaExhaustedError()
	}
	return errors.NewCaptchaMismatchError(left)
}

func (c *Challenge) expired() bool {
	return c.cfg.TTL > 0 && c.now().Sub(c.issuedAt) > c.cfg.TTL
}
