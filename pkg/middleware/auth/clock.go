package auth

import "time"

// Verdict is the freshness classification of a credential.
type Verdict int

const (
	NotApplicable Verdict = iota
	Fresh
	Expired
)

func (v Verdict) String() string {
	switch v {
	case Fresh:
		return "fresh"
	case Expired:
		return "expired"
	default:
		return "not-applicable"
	}
}

// Classify decides whether c must be refreshed. A credential without an
// identity, an access token or a known expiry is NotApplicable. Otherwise it
// is Expired once now+skew reaches ExpiresAt (the expiry instant itself is
// already expired). Negative skew counts as zero.
func Classify(c Credential, now time.Time, skew time.Duration) Verdict {
	if !c.Authenticated() || c.AccessToken == "" || c.ExpiresAt.IsZero() {
		return NotApplicable
	}
	if skew < 0 {
		skew = 0
	}
	if now.Add(skew).Before(c.ExpiresAt) {
		return Fresh
	}
	return Expired
}
