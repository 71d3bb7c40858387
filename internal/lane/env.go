package lane

import "os"

// Env carries the environment-style flags read at decision time. It is a
// plain value so tests can build synthetic environments without mutating
// the process environment.
type Env struct {
	// EnableAPIKeyLane is the escape hatch that opens the api-key lane
	// even when the policy document keeps it disabled.
	EnableAPIKeyLane bool
	// PaidAPIApproved marks that paid API usage was explicitly approved.
	PaidAPIApproved bool
	// RateLimitSafeMode is set while the upstream is in rate-limit
	// recovery; guarded routes must not add paid traffic.
	RateLimitSafeMode bool
	// OpenAIKeyPresent reports whether credential material exists.
	OpenAIKeyPresent bool
}

// EnvFromOS reads the flags from process environment variables.
func EnvFromOS() Env {
	return Env{
		EnableAPIKeyLane:  os.Getenv("RELAYBOT_ENABLE_API_KEY_LANE") == "1",
		PaidAPIApproved:   os.Getenv("RELAYBOT_PAID_API_APPROVED") == "1",
		RateLimitSafeMode: os.Getenv("RELAYBOT_SAFE_MODE") == "1",
		OpenAIKeyPresent:  os.Getenv("OPENAI_API_KEY") != "",
	}
}
