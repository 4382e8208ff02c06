// Package api describes the HTTP contract of the FHIR validation server
// (`validator_cli.jar -startServer`) and provides a thin client for it.
package api

import (
	"encoding/json"
	"slices"
)

// FileTypeJSON is the only file type this client submits.
const FileTypeJSON = "json"

// TxServerNotApplicable is the configuration sentinel meaning "no terminology server".
const TxServerNotApplicable = "n/a"

// CLIContext holds the validation options sent with every request.
type CLIContext struct {
	SV       string   `json:"sv,omitempty"`
	IGs      []string `json:"igs,omitempty"`
	TxServer string   `json:"txServer,omitempty"`
	Locale   string   `json:"locale,omitempty"`

	// TxDisabled sends an explicit null txServer, which turns terminology
	// checks off on the server. Set by Normalize when TxServer is "n/a".
	TxDisabled bool `json:"-"`
}

// Normalize returns a copy of c with the "n/a" terminology sentinel replaced
// by an absent server and the IG list detached from the caller's slice.
func (c CLIContext) Normalize() CLIContext {
	out := c
	out.IGs = slices.Clone(c.IGs)
	if out.TxServer == TxServerNotApplicable {
		out.TxServer = ""
		out.TxDisabled = true
	}
	return out
}

type cliContextWire struct {
	SV       string   `json:"sv,omitempty"`
	IGs      []string `json:"igs,omitempty"`
	TxServer *string  `json:"txServer,omitempty"`
	Locale   string   `json:"locale,omitempty"`
}

// MarshalJSON encodes the context. A disabled terminology server is written
// as `"txServer": null`.
func (c CLIContext) MarshalJSON() ([]byte, error) {
	w := cliContextWire{SV: c.SV, IGs: c.IGs, Locale: c.Locale}
	if c.TxServer != "" {
		tx := c.TxServer
		w.TxServer = &tx
	}
	if !c.TxDisabled {
		return json.Marshal(w)
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m["txServer"] = json.RawMessage("null")
	return json.Marshal(m)
}

// FileToValidate is one file envelope in a validation request.
type FileToValidate struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"`
	FileType    string `json:"fileType"`
}

// ValidateRequest is the body POSTed to /validate.
type ValidateRequest struct {
	CLIContext      CLIContext       `json:"cliContext"`
	FilesToValidate []FileToValidate `json:"filesToValidate"`
	SessionID       string           `json:"sessionId,omitempty"`
}

// ValidateResponse is the server's reply to /validate.
type ValidateResponse struct {
	SessionID string    `json:"sessionId"`
	Outcomes  []Outcome `json:"outcomes"`
}

// FileInfoKey is the outcome field carrying the submitted file's identity.
const FileInfoKey = "fileInfo"

type fileInfo struct {
	FileName string `json:"fileName"`
}

// OutcomeFor returns the outcome reported for fileName. When no outcome names
// the file, the first outcome is returned. ok is false only if there are no
// outcomes at all.
func (r *ValidateResponse) OutcomeFor(fileName string) (Outcome, bool) {
	if len(r.Outcomes) == 0 {
		return Outcome{}, false
	}
	for _, o := range r.Outcomes {
		raw, ok := o.Extra[FileInfoKey]
		if !ok {
			continue
		}
		var fi fileInfo
		if err := json.Unmarshal(raw, &fi); err == nil && fi.FileName == fileName {
			return o, true
		}
	}
	return r.Outcomes[0], true
}
