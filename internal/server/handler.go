package server

import (
	"net/http"

	"github.com/CheerChen/konakore/internal/apperror"
	"github.com/CheerChen/konakore/internal/schedule"
)

type handler struct {
	scheduleSvc *schedule.Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	states, err := h.scheduleSvc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, states)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	req := schedule.GetStateRequest{JobName: r.PathValue("name")}
	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	st, err := h.scheduleSvc.Get(r.Context(), req)
	if err != nil {
		if ae, ok := err.(*apperror.AppError); ok {
			writeError(w, ae.HTTPStatus(), ae.Message())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, st)
}
