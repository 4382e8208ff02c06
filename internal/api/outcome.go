package api

import (
	"encoding/json"
	"fmt"
)

// Level is the severity the server attaches to an issue.
type Level string

const (
	LevelFatal       Level = "FATAL"
	LevelError       Level = "ERROR"
	LevelWarning     Level = "WARNING"
	LevelInformation Level = "INFORMATION"
)

// Rank orders levels from most to least severe. Unknown levels sort last.
func (l Level) Rank() int {
	switch l {
	case LevelFatal:
		return 0
	case LevelError:
		return 1
	case LevelWarning:
		return 2
	case LevelInformation:
		return 3
	}
	return 4
}

// IsError reports whether l fails validation.
func (l Level) IsError() bool {
	return l == LevelFatal || l == LevelError
}

// Issue is a single validation message. Fields the server adds beyond the
// ones modelled here are kept in Extra and written back unchanged. Modelled
// fields are written back exactly as the server sent them unless changed, so
// zero values and members of an unexpected JSON type survive re-encoding.
type Issue struct {
	Source    string `json:"source,omitempty"`
	Line      int    `json:"line,omitempty"`
	Col       int    `json:"col,omitempty"`
	Location  string `json:"location,omitempty"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Type      string `json:"type,omitempty"`
	Level     Level  `json:"level,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`

	// sent holds the modelled members as received.
	sent map[string]json.RawMessage
}

var issueKeys = []string{"source", "line", "col", "location", "message", "messageId", "type", "level"}

// UnmarshalJSON decodes an issue. A modelled member whose JSON type does not
// fit its field leaves the field zero and is passed through as sent.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*i = Issue{}
	decodeField(m, "source", &i.Source)
	decodeField(m, "line", &i.Line)
	decodeField(m, "col", &i.Col)
	decodeField(m, "location", &i.Location)
	decodeField(m, "message", &i.Message)
	decodeField(m, "messageId", &i.MessageID)
	decodeField(m, "type", &i.Type)
	decodeField(m, "level", &i.Level)

	for _, k := range issueKeys {
		if raw, ok := m[k]; ok {
			if i.sent == nil {
				i.sent = make(map[string]json.RawMessage, len(issueKeys))
			}
			i.sent[k] = raw
			delete(m, k)
		}
	}
	if len(m) > 0 {
		i.Extra = m
	}
	return nil
}

func (i Issue) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(issueKeys)+len(i.Extra))
	for k, v := range i.Extra {
		m[k] = v
	}
	for k, v := range i.sent {
		m[k] = v
	}
	for _, err := range []error{
		encodeField(m, "source", i.Source),
		encodeField(m, "line", i.Line),
		encodeField(m, "col", i.Col),
		encodeField(m, "location", i.Location),
		encodeField(m, "message", i.Message),
		encodeField(m, "messageId", i.MessageID),
		encodeField(m, "type", i.Type),
		encodeField(m, "level", i.Level),
	} {
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(m)
}

func decodeField[T any](m map[string]json.RawMessage, key string, dst *T) {
	if raw, ok := m[key]; ok {
		var v T
		if json.Unmarshal(raw, &v) == nil {
			*dst = v
		}
	}
}

// encodeField writes v under key unless the member already in m still
// decodes to v. Zero values are omitted unless they were sent.
func encodeField[T comparable](m map[string]json.RawMessage, key string, v T) error {
	var zero T
	if raw, ok := m[key]; ok {
		var sent T
		if err := json.Unmarshal(raw, &sent); err != nil {
			if v == zero {
				return nil
			}
		} else if sent == v {
			return nil
		}
	}
	if v == zero {
		delete(m, key)
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m[key] = b
	return nil
}

// Outcome is the server's result for one submitted file.
type Outcome struct {
	Issues []Issue `json:"issues"`

	// Extra holds every other field of the outcome (for example fileInfo)
	// exactly as the server sent it.
	Extra map[string]json.RawMessage `json:"-"`
}

type outcomeAlias Outcome

func (o *Outcome) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*outcomeAlias)(o)); err != nil {
		return fmt.Errorf("decode outcome: %w", err)
	}
	extra, err := rawFields(data, "issues")
	if err != nil {
		return err
	}
	o.Extra = extra
	return nil
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Issues == nil {
		o.Issues = []Issue{}
	}
	data, err := json.Marshal(outcomeAlias(o))
	if err != nil {
		return nil, err
	}
	return mergeFields(data, o.Extra)
}

// Counts tallies issues per level.
func (o *Outcome) Counts() map[Level]int {
	counts := make(map[Level]int, 4)
	for _, is := range o.Issues {
		counts[is.Level]++
	}
	return counts
}

// HasErrors reports whether any issue is ERROR or FATAL.
func (o *Outcome) HasErrors() bool {
	for _, is := range o.Issues {
		if is.Level.IsError() {
			return true
		}
	}
	return false
}

// rawFields decodes data as an object and returns every member not named in known.
// A nil map is returned when nothing is left.
func rawFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(m, k)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// mergeFields adds extra members to the encoded object data. Members already
// present in data win.
func mergeFields(data []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}
