package copywriting

import (
	"fmt"
	"strings"
)

func buildAdPrompt(b AdBrief) string {
	var sb strings.Builder
	if b.Variants == 1 {
		sb.WriteString("Write one advertisement.\n\n")
	} else {
		fmt.Fprintf(&sb, "Write %d distinct advertisement variants.\n\n", b.Variants)
	}
	fmt.Fprintf(&sb, "Product or service: %s\n", b.Product)
	fmt.Fprintf(&sb, "Target audience: %s\n", b.Audience)
	if b.Platform != "" {
		fmt.Fprintf(&sb, "Platform: %s\n", b.Platform)
	}
	fmt.Fprintf(&sb, "Tone: %s\n", b.Tone)
	if b.Goal != "" {
		fmt.Fprintf(&sb, "Campaign goal: %s\n", b.Goal)
	}
	return sb.String()
}

func buildEmailPrompt(b EmailBrief) string {
	var sb strings.Builder
	sb.WriteString("Write a marketing email.\n\n")
	fmt.Fprintf(&sb, "Purpose: %s\n", b.Purpose)
	fmt.Fprintf(&sb, "Audience: %s\n", b.Audience)
	if b.Subject != "" {
		fmt.Fprintf(&sb, "Subject line idea: %s\n", b.Subject)
	}
	fmt.Fprintf(&sb, "Tone: %s\n", b.Tone)
	if len(b.KeyPoints) > 0 {
		sb.WriteString("Key points to cover:\n")
		for _, p := range b.KeyPoints {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	return sb.String()
}
