package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/session-indexer/internal/enrich"
	"github.com/jonathan/session-indexer/internal/recommend"
	"github.com/jonathan/session-indexer/internal/reindex"
	"github.com/jonathan/session-indexer/internal/store"
)

// ErrReindexInProgress is returned when a reindex is requested while another runs.
var ErrReindexInProgress = errors.New("a reindex run is already in progress")

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		malformedErr  *enrich.MalformedRecordError
		profileErr    *recommend.InvalidProfileError
		queryErr      *recommend.InvalidQueryError
		initErr       *reindex.InitializationError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &malformedErr), errors.As(err, &profileErr),
		errors.As(err, &queryErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrReindexInProgress):
		return http.StatusConflict
	case errors.As(err, &initErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
