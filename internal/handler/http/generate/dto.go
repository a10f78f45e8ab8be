// Package generate provides the public HTTP handlers that turn marketing
// briefs into AI copy, gated by the per-client rate limiter.
package generate

import "agency-site/internal/usecase/copywriting"

// AdRequest is the JSON body of POST /api/generate/ad.
type AdRequest struct {
	Product  string `json:"product" example:"Reusable coffee cup"`
	Audience string `json:"audience" example:"Commuters aged 25-40"`
	Platform string `json:"platform,omitempty" example:"instagram"`
	Tone     string `json:"tone,omitempty" example:"playful"`
	Goal     string `json:"goal,omitempty" example:"Drive pre-orders"`
	Variants int    `json:"variants,omitempty" example:"3"`
}

func (r AdRequest) brief() copywriting.AdBrief {
	return copywriting.AdBrief{
		Product:  r.Product,
		Audience: r.Audience,
		Platform: r.Platform,
		Tone:     r.Tone,
		Goal:     r.Goal,
		Variants: r.Variants,
	}
}

// EmailRequest is the JSON body of POST /api/generate/email.
type EmailRequest struct {
	Purpose   string   `json:"purpose" example:"Announce the spring sale"`
	Audience  string   `json:"audience" example:"Existing customers"`
	Subject   string   `json:"subject,omitempty"`
	Tone      string   `json:"tone,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
}

func (r EmailRequest) brief() copywriting.EmailBrief {
	return copywriting.EmailBrief{
		Purpose:   r.Purpose,
		Audience:  r.Audience,
		Subject:   r.Subject,
		Tone:      r.Tone,
		KeyPoints: r.KeyPoints,
	}
}

// GenerateResponse is returned when copy was generated.
type GenerateResponse struct {
	Content   string `json:"content"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt" example:"2026-01-01T13:00:00.000Z"`
}

// RateLimitedResponse is returned with 429.
type RateLimitedResponse struct {
	Error   string `json:"error"`
	ResetAt string `json:"resetAt"`
}

// QuotaResponse describes the caller's quota without consuming it.
type QuotaResponse struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   string `json:"resetAt"`
	Allowed   bool   `json:"allowed"`
}
