package handlers

import (
	"fmt"
	"strings"

	"github.com/giannis84/matchday-favourites/internal/favourites"
	"github.com/giannis84/matchday-favourites/internal/models"
	"github.com/google/uuid"
)

const maxStringLength = 255

func requireNonEmpty(field, value string) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s is required", field)
	}
	return ""
}

func checkMaxLength(field, value string, max int) string {
	if len(value) > max {
		return fmt.Sprintf("%s exceeds maximum length of %d", field, max)
	}
	return ""
}

// ParseMatchID validates a match id taken from the URL path.
func ParseMatchID(raw string) (models.MatchID, error) {
	var id models.MatchID
	err := favourites.Validate(
		func() string { return requireNonEmpty("match_id", raw) },
		func() string { return checkMaxLength("match_id", raw, maxStringLength) },
		func() string {
			if strings.TrimSpace(raw) == "" || len(raw) > maxStringLength {
				return ""
			}
			parsed, err := models.ParseMatchID(raw)
			if err != nil {
				return fmt.Sprintf("match_id: %v", err)
			}
			id = parsed
			return ""
		},
	)
	return id, err
}

// ValidateSessionID checks that raw looks like an id issued by the session manager.
func ValidateSessionID(raw string) error {
	return favourites.Validate(
		func() string { return requireNonEmpty("session_id", raw) },
		func() string {
			if raw == "" {
				return ""
			}
			if _, err := uuid.Parse(raw); err != nil {
				return "session_id is not a valid session identifier"
			}
			return ""
		},
	)
}
