package respond

import (
	"regexp"
)

var (
	// Provider API keys. The Anthropic pattern is applied first because
	// its keys also match the generic OpenAI shape.
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)

	// Passwords in connection URLs, e.g. redis://:secret@host:6379.
	urlPasswordPattern = regexp.MustCompile(`://([^:/@]*):([^@/]+)@`)
)

// SanitizeError returns the error message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
