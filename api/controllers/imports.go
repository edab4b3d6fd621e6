package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/api/middleware"
	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	"github.com/printforge/printforge-backend/internal/imports"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type createImportJobRequest struct {
	CSVMediaID        string  `json:"csv_media_id" validate:"required"`
	ArchiveMediaID    *string `json:"archive_media_id,omitempty"`
	RollbackOnFailure *bool   `json:"rollback_on_failure,omitempty"`
}

type importJobResponse struct {
	Job   *imports.ImportJobDTO   `json:"job"`
	Items []imports.ImportItemDTO `json:"items,omitempty"`
}

// CreateImportJob validates the uploaded CSV and enqueues the batch run.
func CreateImportJob(svc imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		actor := middleware.UserIDFromContext(r.Context())
		createdBy, err := uuid.Parse(actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createImportJobRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		csvMediaID, err := uuid.Parse(payload.CSVMediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid csv_media_id"))
			return
		}

		var archiveMediaID *uuid.UUID
		if payload.ArchiveMediaID != nil && *payload.ArchiveMediaID != "" {
			parsed, err := uuid.Parse(*payload.ArchiveMediaID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid archive_media_id"))
				return
			}
			archiveMediaID = &parsed
		}

		job, err := svc.CreateImportJob(r.Context(), imports.CreateImportJobInput{
			CreatedBy:         createdBy,
			CSVMediaID:        csvMediaID,
			ArchiveMediaID:    archiveMediaID,
			RollbackOnFailure: payload.RollbackOnFailure,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, importJobResponse{Job: job})
	}
}

// GetImportJob returns a job with its per-row items.
func GetImportJob(svc imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		jobID, err := validators.ParsePathUUID(chi.URLParam(r, "jobID"), "jobID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, items, err := svc.GetImportJob(r.Context(), jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, importJobResponse{Job: job, Items: items})
	}
}

// ListImportJobs returns recent jobs, newest first.
func ListImportJobs(svc imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobs, err := svc.ListImportJobs(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, jobs)
	}
}

// RollbackImportJob deletes the products created by a finished job.
func RollbackImportJob(svc imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		jobID, err := validators.ParsePathUUID(chi.URLParam(r, "jobID"), "jobID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.RollbackImportJob(r.Context(), jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, importJobResponse{Job: job})
	}
}

// ImportTemplate serves the starter CSV with the expected header row.
func ImportTemplate(svc imports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "import service unavailable"))
			return
		}

		responses.WriteCSV(w, "import-template.csv", svc.TemplateCSV())
	}
}
