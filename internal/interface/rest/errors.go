package restservice

import (
	"encoding/json"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/solestate/estated/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var somethingWentWrong = errors.INTERNAL_ERROR.New("something went wrong")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// writeError converts err into an ErrorResponse. Untyped errors are never
// exposed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var typed errors.Error
	if !errors.As(err, &typed) {
		log.WithError(err).WithField("path", r.URL.Path).Error("untyped error")
		typed = somethingWentWrong
	}

	if typed.Class() == errors.ClassInternal {
		typed.Log().WithField("path", r.URL.Path).Error(typed.Message())
	}

	writeJSON(w, runtime.HTTPStatusFromCode(typed.GrpcCode()), ErrorResponse{
		Code:     typed.Code(),
		Name:     typed.CodeName(),
		Message:  typed.Message(),
		Metadata: typed.Metadata(),
	})
}
