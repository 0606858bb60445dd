package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as the public error envelope. Errors outside the
// pkg/errors taxonomy are reported as internal and their text stays in the logs.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	class := pkgerrors.ClassOf(typed.Code())

	body := types.APIError{
		Code:    string(typed.Code()),
		Message: class.PublicMessage(typed),
	}
	if class.ShowDetails {
		body.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.LogFields(typed)
		fields["status"] = class.Status
		logCtx := logg.WithFields(ctx, fields)
		if class.Status >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", err)
		} else {
			logg.Warn(logCtx, "request rejected: "+typed.Error())
		}
	}

	writeJSON(w, class.Status, types.ErrorEnvelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out; nothing useful to do on failure
	_ = json.NewEncoder(w).Encode(payload)
}
