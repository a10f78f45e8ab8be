package copywriting

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Field limits, in characters.
const (
	maxShortField  = 120
	maxLongField   = 1000
	maxKeyPoints   = 10
	maxKeyPointLen = 300

	// MaxVariants caps how many ad variants a single request may ask for.
	MaxVariants = 5
	// DefaultVariants is used when a brief leaves Variants at zero.
	DefaultVariants = 3
	// DefaultTone is used when a brief leaves Tone empty.
	DefaultTone = "professional"
)

// AdBrief describes an advertisement to write.
type AdBrief struct {
	Product  string
	Audience string
	Platform string
	Tone     string
	Goal     string
	Variants int
}

// EmailBrief describes a marketing email to write.
type EmailBrief struct {
	Purpose   string
	Audience  string
	Subject   string
	Tone      string
	KeyPoints []string
}

// Normalize trims every field and fills defaults.
func (b *AdBrief) Normalize() {
	b.Product = strings.TrimSpace(b.Product)
	b.Audience = strings.TrimSpace(b.Audience)
	b.Platform = strings.TrimSpace(b.Platform)
	b.Tone = strings.TrimSpace(b.Tone)
	b.Goal = strings.TrimSpace(b.Goal)
	if b.Tone == "" {
		b.Tone = DefaultTone
	}
	if b.Variants == 0 {
		b.Variants = DefaultVariants
	}
}

// Validate reports the first problem with the brief as an error wrapping
// ErrInvalidBrief. Call Normalize first.
func (b AdBrief) Validate() error {
	if err := required("product", b.Product, maxLongField); err != nil {
		return err
	}
	if err := required("audience", b.Audience, maxLongField); err != nil {
		return err
	}
	if err := optional("platform", b.Platform, maxShortField); err != nil {
		return err
	}
	if err := optional("tone", b.Tone, maxShortField); err != nil {
		return err
	}
	if err := optional("goal", b.Goal, maxLongField); err != nil {
		return err
	}
	if b.Variants < 1 || b.Variants > MaxVariants {
		return fmt.Errorf("%w: variants must be between 1 and %d", ErrInvalidBrief, MaxVariants)
	}
	return nil
}

// Normalize trims every field, drops blank key points and fills defaults.
func (b *EmailBrief) Normalize() {
	b.Purpose = strings.TrimSpace(b.Purpose)
	b.Audience = strings.TrimSpace(b.Audience)
	b.Subject = strings.TrimSpace(b.Subject)
	b.Tone = strings.TrimSpace(b.Tone)
	if b.Tone == "" {
		b.Tone = DefaultTone
	}

	points := make([]string, 0, len(b.KeyPoints))
	for _, p := range b.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	b.KeyPoints = points
}

// Validate reports the first problem with the brief as an error wrapping
// ErrInvalidBrief. Call Normalize first.
func (b EmailBrief) Validate() error {
	if err := required("purpose", b.Purpose, maxLongField); err != nil {
		return err
	}
	if err := required("audience", b.Audience, maxLongField); err != nil {
		return err
	}
	if err := optional("subject", b.Subject, maxShortField); err != nil {
		return err
	}
	if err := optional("tone", b.Tone, maxShortField); err != nil {
		return err
	}
	if len(b.KeyPoints) > maxKeyPoints {
		return fmt.Errorf("%w: at most %d key points allowed", ErrInvalidBrief, maxKeyPoints)
	}
	for i, p := range b.KeyPoints {
		if utf8.RuneCountInString(p) > maxKeyPointLen {
			return fmt.Errorf("%w: key point %d exceeds %d characters", ErrInvalidBrief, i+1, maxKeyPointLen)
		}
	}
	return nil
}

func required(field, value string, max int) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidBrief, field)
	}
	return optional(field, value, max)
}

func optional(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidBrief, field, max)
	}
	return nil
}
