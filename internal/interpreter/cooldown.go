package interpreter

// AlertCooldownMillis is the minimum spacing between any two alerts.
const AlertCooldownMillis = 1000

// allowAlert reports whether an alert may fire at now. Movement and
// rotation alerts share the same timeline.
func (s *SessionState) allowAlert(now int64) bool {
	if !s.HasAlerted {
		return true
	}
	return now-s.LastAlertMillis >= AlertCooldownMillis
}

func (s *SessionState) recordAlert(now int64) {
	s.LastAlertMillis = now
	s.HasAlerted = true
}
