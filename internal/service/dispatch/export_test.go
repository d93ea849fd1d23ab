package dispatch

import "time"

// SetNow pins the service clock.
func (s *Service) SetNow(fn func() time.Time) { s.now = fn }
