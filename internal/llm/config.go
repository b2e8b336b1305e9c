// Package llm provides the LLM configuration and client abstraction used by the
// task generator.
package llm

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is for cheap, short outputs
	TierLite ModelTier = "lite"
	// TierStandard is for structured generation such as lesson tasks
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or nuanced generation
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// DefaultTemperature leaves room for varied task ideas while keeping JSON output stable.
const DefaultTemperature float32 = 0.7

// DefaultMaxOutputTokens bounds one lesson's worth of tasks.
const DefaultMaxOutputTokens int32 = 4096

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
	// MaxOutputTokens caps each answer; zero leaves the provider default.
	MaxOutputTokens int32
	// SystemInstruction is sent with every request when set.
	SystemInstruction string
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier.
// An empty model leaves the config unchanged.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := c.clone()
	if model != "" {
		next.Models[tier] = model
	}
	return next
}

// WithSystemInstruction returns a copy of the config that sends instruction
// as the system prompt.
func (c *Config) WithSystemInstruction(instruction string) *Config {
	next := c.clone()
	next.SystemInstruction = instruction
	return next
}

func (c *Config) clone() *Config {
	next := *c
	next.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		next.Models[k] = v
	}
	return &next
}
