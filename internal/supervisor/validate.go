package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/Outburn-IL/fhir-validator/internal/api"
)

// Validate submits one resource on the current session and returns the
// server's outcome for it, without the fileInfo field.
//
// resource may be a decoded JSON object (map[string]any or any value that
// encodes to a JSON object), JSON text (string, []byte, json.RawMessage), or
// a one-element slice of either. The caller's value is never modified.
//
// profiles may be nil, a string, []string or []any holding strings. A
// non-empty list replaces the resource's meta.profile.
//
// Input errors are returned before any request is made. If the server
// answers with a different session id, it becomes the current one.
func (s *Supervisor) Validate(ctx context.Context, resource any, profiles any) (*api.Outcome, error) {
	sent := s.session.Load()
	if sent == nil || *sent == "" {
		return nil, ErrSessionNotInitialized
	}

	res, err := normalizeResource(resource)
	if err != nil {
		return nil, err
	}
	profs, err := normalizeProfiles(profiles)
	if err != nil {
		return nil, err
	}
	if len(profs) > 0 {
		setProfiles(res, profs)
	}

	content, err := encodeResource(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}

	fileName := uuid.NewString() + ".json"
	resp, err := s.client.Validate(ctx, &api.ValidateRequest{
		CLIContext: s.context,
		FilesToValidate: []api.FileToValidate{{
			FileName:    fileName,
			FileContent: string(content),
			FileType:    api.FileTypeJSON,
		}},
		SessionID: *sent,
	})
	if err != nil {
		return nil, err
	}

	s.adoptSession(sent, resp.SessionID)

	outcome, ok := resp.OutcomeFor(fileName)
	if !ok {
		return nil, ErrNoOutcome
	}
	delete(outcome.Extra, api.FileInfoKey)
	return &outcome, nil
}

// normalizeResource turns the accepted resource shapes into a private JSON object.
func normalizeResource(resource any) (map[string]any, error) {
	if !isText(resource) {
		rv := reflect.ValueOf(resource)
		if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
			if rv.Len() != 1 {
				return nil, ErrArrayNotSupported
			}
			resource = rv.Index(0).Interface()
		}
	}

	var (
		data []byte
		text = true
	)
	switch v := resource.(type) {
	case string:
		data = []byte(v)
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		// Encoding and decoding again yields a deep copy.
		b, err := json.Marshal(resource)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
		}
		data, text = b, false
	}

	v, err := decodeJSON(data)
	if err != nil {
		if text {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return nil, ErrInvalidResource
	}
	return obj, nil
}

// encodeResource encodes res without HTML escaping, so narrative markup is
// sent as written.
func encodeResource(res map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func isText(v any) bool {
	switch v.(type) {
	case string, []byte, json.RawMessage:
		return true
	}
	return false
}

// decodeJSON decodes exactly one JSON value, keeping numbers as written.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func normalizeProfiles(profiles any) ([]string, error) {
	switch v := profiles.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return slices.Clone(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, p := range v {
			str, ok := p.(string)
			if !ok {
				return nil, ErrInvalidProfiles
			}
			out = append(out, str)
		}
		return out, nil
	}
	return nil, ErrInvalidProfiles
}

// setProfiles overwrites meta.profile. Existing profiles are not merged.
func setProfiles(res map[string]any, profiles []string) {
	meta, ok := res["meta"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		res["meta"] = meta
	}
	meta["profile"] = profiles
}
