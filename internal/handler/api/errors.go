package api

import (
	"errors"
	"time"

	"MarketThermo/internal/domain/models"
	"MarketThermo/internal/usecase"
	xhttp "MarketThermo/pkg/http"
	"MarketThermo/pkg/util"
)

// parseDay maps an empty date to the zero time, which the assembler reads as today.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := util.ParseDay(s)
	if err != nil {
		return time.Time{}, errors.Join(models.ErrInvalidDate, err)
	}
	return d, nil
}

// toAppError maps domain errors onto API error codes.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrInvalidDate):
		return xhttp.FieldError(xhttp.CodeInvalidDate, "date", "date must be YYYY-MM-DD").WithError(err)
	case errors.Is(err, models.ErrFutureDateRequested):
		return xhttp.FieldError(xhttp.CodeFutureDate, "date", "requested date is in the future").WithError(err)
	case errors.Is(err, models.ErrAllSourcesExhausted):
		return xhttp.UnavailableError("market data failed to load, try again later").WithError(err)
	case errors.Is(err, usecase.ErrUnsupportedFormat):
		return xhttp.FieldError(xhttp.CodeBadRequest, "format", "unsupported export format").WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}
