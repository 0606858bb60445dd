package validators

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter within [min, max]. An
// absent or blank value yields defaultVal.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Validation(key, "must be numeric")
	}
	if value < min || value > max {
		return 0, pkgerrors.Validation(key, fmt.Sprintf("must be between %d and %d", min, max))
	}
	return value, nil
}

// ParsePage reads the 1-based ?page= parameter used by every listing.
func ParsePage(r *http.Request) (int, error) {
	return ParseQueryInt(r, "page", 1, 1, math.MaxInt32)
}

// ParseUUID validates a path or query identifier.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Validation(field, "must be a valid id")
	}
	return id, nil
}
