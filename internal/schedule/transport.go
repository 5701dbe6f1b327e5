package schedule

import "github.com/CheerChen/konakore/internal/apperror"

type GetStateRequest struct {
	JobName string
}

func (r GetStateRequest) Validate() *apperror.AppError {
	if r.JobName == "" {
		return apperror.New(apperror.BadRequest, "job name is required")
	}
	return nil
}
