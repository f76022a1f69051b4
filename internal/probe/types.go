package probe

// Verdict is the classification outcome of a single platform probe.
type Verdict string

const (
	VerdictTaken     Verdict = "taken"
	VerdictAvailable Verdict = "available"
	VerdictUnknown   Verdict = "unknown"
)

// Reasons attached to results that never reached a classifiable response.
const (
	ReasonNoPublicCheck = "no-public-check"
	ReasonInvalidHandle = "invalid-handle"
	ReasonRequestFailed = "request-failed"
	ReasonCanceled      = "canceled"
)

// Result is one probe outcome for a (username, platform) pair. Immutable
// once produced.
type Result struct {
	Username string
	Platform string

	Verdict Verdict
	Reason  string

	// StatusCode is nil when no HTTP response was obtained.
	StatusCode *int

	// Err carries the transport or validation error behind an Unknown
	// verdict. It is informational; probe failures are never fatal.
	Err error
}

type Config struct {
	UserAgent    string
	MaxBodyBytes int64
}

// Hooks receive runner events as they happen. OnResult is required;
// OnInvalid is called for usernames rejected before any probe is scheduled.
type Hooks struct {
	OnResult  func(Result)
	OnInvalid func(username string, err error)
}
