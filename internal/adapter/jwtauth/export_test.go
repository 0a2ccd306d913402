package jwtauth

import "time"

// SetNow lets tests control token issue and validation time.
func (a *Authenticator) SetNow(now func() time.Time) {
	a.now = now
}
