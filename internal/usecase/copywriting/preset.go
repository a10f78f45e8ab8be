package copywriting

// Kind identifies the type of copy being generated.
type Kind string

// Copy kinds.
const (
	KindAd    Kind = "ad"
	KindEmail Kind = "email"
)

// Preset holds the generation settings for one Kind.
type Preset struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Merge returns p with every non-zero field of override applied.
func (p Preset) Merge(override Preset) Preset {
	if override.SystemPrompt != "" {
		p.SystemPrompt = override.SystemPrompt
	}
	if override.Temperature != 0 {
		p.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		p.MaxTokens = override.MaxTokens
	}
	return p
}

// Presets maps each Kind to its settings.
type Presets struct {
	Ad    Preset
	Email Preset
}

// For returns the preset for kind.
func (p Presets) For(kind Kind) Preset {
	if kind == KindEmail {
		return p.Email
	}
	return p.Ad
}

// DefaultPresets returns the built-in presets.
func DefaultPresets() Presets {
	return Presets{
		Ad: Preset{
			SystemPrompt: "You are a senior copywriter at a digital marketing agency. " +
				"Write concise, persuasive advertising copy that respects the platform's conventions " +
				"and character limits. Never invent prices, statistics or guarantees that are not in the brief. " +
				"Return only the copy, numbered when more than one variant is requested.",
			Temperature: 0.8,
			MaxTokens:   600,
		},
		Email: Preset{
			SystemPrompt: "You are an email marketing specialist at a digital marketing agency. " +
				"Write a clear marketing email with a subject line, a short body and one call to action. " +
				"Keep it scannable and never invent facts that are not in the brief. " +
				"Start with a line of the form \"Subject: ...\" followed by the body.",
			Temperature: 0.7,
			MaxTokens:   900,
		},
	}
}
