package problemgen

// ProtocolConfig controls the duplicate-avoidance protocol.
type ProtocolConfig struct {
	// Validators run in order on every candidate; the first failure drops it.
	Validators []Validator

	// Lookback is how many recent topic-matching exams or decks feed the
	// avoid-set.
	Lookback int

	// ScanLimit bounds how many recent items are scanned to find Lookback
	// matches.
	ScanLimit int

	// MaxAvoid caps the avoid-set.
	MaxAvoid int

	// ExtraCandidates is requested on top of the desired count to leave room
	// for filtering.
	ExtraCandidates int
}

// DefaultProtocolConfig returns the standard validator chain and limits.
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		Validators: []Validator{
			&StructuralValidator{},
			&ChoiceValidator{},
		},
		Lookback:        3,
		ScanLimit:       10,
		MaxAvoid:        50,
		ExtraCandidates: 5,
	}
}

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxAvoidInPrompt is how many avoid entries are spelled out in the
	// prompt. The full set is still enforced locally.
	MaxAvoidInPrompt int
}

// DefaultConfig returns recommended LLMGenerator settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        4096,
		Temperature:      0.7,
		MaxAvoidInPrompt: 20,
	}
}
