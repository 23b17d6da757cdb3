package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/stardeck/stardeck/internal/timestamp"
	"gopkg.in/yaml.v3"
)

// Timestamp decodes the backend's mix of RFC3339 and naive ISO timestamps.
// A JSON null or empty string decodes to the zero time.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := timestamp.Parse(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(timestamp.Format(t.Time))
}

func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return "", nil
	}
	return timestamp.Format(t.Time), nil
}

func (t *Timestamp) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := timestamp.Parse(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
