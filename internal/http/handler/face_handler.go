package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/facegate-io/facegate/internal/http/response"
	"github.com/facegate-io/facegate/internal/observability"
	"github.com/facegate-io/facegate/internal/security"
	"github.com/facegate-io/facegate/internal/service"
)

const imagesFormField = "images"

type FaceHandler struct {
	authSvc        service.AuthServiceInterface
	enroller       service.BiometricEnroller
	cookieMgr      *security.CookieManager
	maxUploadBytes int64
}

func NewFaceHandler(authSvc service.AuthServiceInterface, enroller service.BiometricEnroller, cookieMgr *security.CookieManager, maxUploadBytes int64) *FaceHandler {
	return &FaceHandler{authSvc: authSvc, enroller: enroller, cookieMgr: cookieMgr, maxUploadBytes: maxUploadBytes}
}

// Enroll accepts a multipart form with a uuid field and one or more image
// files, and stores the aggregated reference embedding for that uuid.
func (h *FaceHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "face_enroll", status, time.Since(start))
	}()

	uuid, images, ok := h.readEnrollForm(w, r)
	if !ok {
		status = "failure"
		return
	}

	if err := h.enroller.Enroll(r.Context(), uuid, images); err != nil {
		status = "failure"
		switch {
		case errors.Is(err, service.ErrNoImages):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "at least one image is required", nil)
		case errors.Is(err, service.ErrEmbeddingFailed):
			observability.Audit(r, "face.enroll.rejected", "uuid", uuid, "reason", "embedding_failed")
			response.Error(w, r, http.StatusUnprocessableEntity, "EMBEDDING_FAILED", "could not extract a face from the supplied images", nil)
		default:
			observability.Audit(r, "face.enroll.failed", "uuid", uuid, "reason", "internal")
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "enrollment failed", nil)
		}
		return
	}

	observability.Audit(r, "face.enroll.success", "uuid", uuid, "samples", len(images))
	response.JSON(w, r, http.StatusOK, map[string]any{"status": "enrolled", "uuid": uuid, "samples": len(images)})
}

// Verify is the biometric stage: it redeems the session assertion issued at
// login against fresh images. All rejection causes collapse into a single
// 401 so a caller cannot probe which check failed.
func (h *FaceHandler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "face_verify", status, time.Since(start))
	}()

	assertion := security.AssertionFromRequest(r)
	if assertion == "" {
		status = "failure"
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session assertion", nil)
		return
	}

	images, ok := h.readImages(w, r)
	if !ok {
		status = "failure"
		return
	}

	res, err := h.authSvc.CompleteBiometric(r.Context(), assertion, images)
	if err != nil {
		status = "failure"
		observability.Audit(r, "face.verify.failed", "reason", "internal")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "verification failed", nil)
		return
	}
	if !res.Authenticated {
		status = "failure"
		observability.Audit(r, "face.verify.rejected", "uuid", res.UUID, "reason", res.Reason, "restart", res.RestartRequired, "ip", clientIP(r))
		if res.RestartRequired {
			h.cookieMgr.ClearAssertionCookie(w)
			response.Error(w, r, http.StatusUnauthorized, "ASSERTION_REJECTED", "session assertion rejected, restart authentication", nil)
			return
		}
		response.Error(w, r, http.StatusUnauthorized, "NOT_AUTHENTICATED", "biometric verification failed", nil)
		return
	}

	observability.Audit(r, "face.verify.success", "uuid", res.UUID, "score", res.Score, "ip", clientIP(r))
	response.JSON(w, r, http.StatusOK, map[string]any{
		"status":   "authenticated",
		"uuid":     res.UUID,
		"username": res.Username,
	})
}

func (h *FaceHandler) readEnrollForm(w http.ResponseWriter, r *http.Request) (string, [][]byte, bool) {
	images, ok := h.readImages(w, r)
	if !ok {
		return "", nil, false
	}
	uuid := r.FormValue("uuid")
	if uuid == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "uuid is required", nil)
		return "", nil, false
	}
	return uuid, images, true
}

// readImages parses the multipart form and drains every uploaded file. On
// failure it writes the error response itself and returns ok=false.
func (h *FaceHandler) readImages(w http.ResponseWriter, r *http.Request) ([][]byte, bool) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid multipart form", nil)
		return nil, false
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File[imagesFormField]) == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "at least one image is required", nil)
		return nil, false
	}

	files := r.MultipartForm.File[imagesFormField]
	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unreadable image upload", nil)
			return nil, false
		}
		data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes))
		f.Close()
		if err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unreadable image upload", nil)
			return nil, false
		}
		images = append(images, data)
	}
	return images, true
}
