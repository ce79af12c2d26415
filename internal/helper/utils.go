// Package helper carries small cross-cutting utilities.
package helper

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID returns a random UUID string, used for session ids.
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating uuid: %w", err)
	}
	return id.String(), nil
}

// PrettyPrint writes v to stdout as indented JSON.
func PrettyPrint(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("failed to render value as JSON")
		return
	}
	fmt.Println(string(b))
}
