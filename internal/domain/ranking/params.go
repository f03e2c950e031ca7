package ranking

import "fmt"

// Policy names a weighting function used to choose the next card.
type Policy string

// Supported policies
const (
	// PolicyLinear weights each card by misses + 1.
	PolicyLinear Policy = "linear"
	// PolicyBeta weights each card by a fresh sample of Beta(misses+1, hits+1).
	PolicyBeta Policy = "beta"
)

// Params defines all configurable parameters for card selection
type Params struct {
	Policy Policy

	// Reverse selects and records on the reverse counters.
	Reverse bool
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	Policy  string
	Reverse bool
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Policy: PolicyBeta,
	}
}

// NewParams creates a new Params instance with custom configuration.
// An empty policy keeps the default; an unknown one is an error.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.Policy != "" {
		policy := Policy(config.Policy)
		if !isValidPolicy(policy) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, config.Policy)
		}
		params.Policy = policy
	}
	params.Reverse = config.Reverse

	return params, nil
}

func isValidPolicy(p Policy) bool {
	switch p {
	case PolicyLinear, PolicyBeta:
		return true
	default:
		return false
	}
}
