package session

import "time"

// Session is the client-side record of a validation session opened on a
// shared server. It lets later runs resume the session instead of opening a
// new one.
type Session struct {
	ID        string    `json:"id"`
	Port      int       `json:"port"`
	StartTime time.Time `json:"start_time"`
	LastUsed  time.Time `json:"last_used"`
	// Validations counts resources validated on this session by this client.
	Validations int `json:"validations"`
	// Rotations counts how many times the server replaced an expired id.
	Rotations int `json:"rotations,omitempty"`
}

// Touch records use of the session at now. If the server issued a new id, it
// replaces the stored one and the rotation is counted.
func (s *Session) Touch(id string, validated int, now time.Time) {
	if id != "" && id != s.ID {
		if s.ID != "" {
			s.Rotations++
		}
		s.ID = id
	}
	s.Validations += validated
	s.LastUsed = now
}
