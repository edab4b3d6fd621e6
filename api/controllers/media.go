package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/api/middleware"
	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	"github.com/printforge/printforge-backend/internal/media"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type presignUploadRequest struct {
	Kind      string `json:"kind" validate:"required"`
	FileName  string `json:"file_name" validate:"required"`
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,min=1"`
}

// MediaPresign issues a signed upload URL and registers the pending record.
func MediaPresign(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		var payload presignUploadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseMediaKind(strings.TrimSpace(payload.Kind))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
			return
		}

		var userID *uuid.UUID
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err == nil {
				userID = &parsed
			}
		}

		result, err := svc.PresignUpload(r.Context(), media.PresignUploadInput{
			Kind:      kind,
			FileName:  payload.FileName,
			MimeType:  payload.MimeType,
			SizeBytes: payload.SizeBytes,
			UserID:    userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GetMedia returns the metadata for one media record.
func GetMedia(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		mediaID, err := validators.ParsePathUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetMedia(r.Context(), mediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// MediaReadURL returns a short-lived signed download URL.
func MediaReadURL(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		mediaID, err := validators.ParsePathUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.SignedReadURL(r.Context(), mediaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"url": url})
	}
}

// DeleteMedia removes a media record and its stored object.
func DeleteMedia(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		mediaID, err := validators.ParsePathUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteMedia(r.Context(), mediaID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
