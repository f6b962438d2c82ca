package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// StatePayload is encoded into the OAuth state parameter so the callback can
// verify which provider flow it belongs to.
type StatePayload struct {
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
}

// EncodeState encodes a StatePayload as a base64 JSON string.
func EncodeState(provider string) (string, error) {
	payload := StatePayload{
		Provider: provider,
		Nonce:    uuid.NewString(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// DecodeState decodes and validates the StatePayload from a callback's state
// parameter.
func DecodeState(state string) (*StatePayload, error) {
	b, err := base64.URLEncoding.DecodeString(state)
	if err != nil {
		return nil, errors.New("invalid state encoding")
	}
	var payload StatePayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, errors.New("invalid state payload")
	}
	if payload.Provider == "" || payload.Nonce == "" {
		return nil, errors.New("incomplete state payload")
	}
	return &payload, nil
}
