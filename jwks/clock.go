package jwks

import "time"

// clock abstracts time.Now so expiry and retirement behavior can be tested
// without sleeping.
type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
