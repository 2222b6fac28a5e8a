package common

import (
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/squareup/pranascan/errors"
)

// LogInternalError logs an unexpected error under a random reference and returns a ScanError carrying only
// the reference, so implementation details stay in the logs.
func LogInternalError(err error) errors.ScanError {
	id, err2 := uuid.NewRandom()
	var errRef string
	if err2 != nil {
		log.Errorf("failed to generate uuid %v", err2)
	} else {
		errRef = id.String()
	}
	perr := errors.NewInternalError(errRef)
	log.Errorf("internal error occurred with reference %s\n%+v", errRef, err)
	return perr
}
