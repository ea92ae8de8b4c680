package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"cattube/internal/logger"
	"cattube/internal/models"
	"cattube/internal/services"
	"cattube/internal/transloadit"
)

const (
	maxNotificationBody = 1 << 20

	fieldTransloadit = "transloadit"
	fieldSignature   = "signature"
)

type reconciler interface {
	Reconcile(ctx context.Context, n transloadit.Notification) (*models.Video, error)
}

// NotificationHandler receives assembly notifications from Transloadit.
type NotificationHandler struct {
	videos reconciler
}

func NewNotificationHandler(videos *services.VideoService) *NotificationHandler {
	return &NotificationHandler{videos: videos}
}

// Receive answers 204 once the video is updated, 400 with field errors for a
// malformed or unverifiable notification and 404 with an empty body when no
// video matches the assembly.
func (h *NotificationHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNotificationBody)

	n, errs, status := readNotification(r)
	if status == http.StatusUnsupportedMediaType {
		writeJSON(w, status, map[string]string{"detail": "Unsupported media type \"" + r.Header.Get("Content-Type") + "\" in request."})
		return
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": "Malformed request."})
		return
	}
	if len(errs) > 0 {
		logger.Warnf("Notification errors: %v", errs)
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	logger.Debugf("Received notification: %d bytes", len(n.Transloadit))

	_, err := h.videos.Reconcile(r.Context(), n)
	switch e := err.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case *services.ValidationError:
		logger.Warnf("Notification errors: %v", e.Fields)
		writeJSON(w, http.StatusBadRequest, e.Fields)
	case *services.NotFoundError:
		w.WriteHeader(http.StatusNotFound)
	default:
		logger.Errorf("Reconciling notification: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// readNotification extracts the two fields from a form, multipart or JSON
// body. Absent fields are reported as required; blank and content checks
// are left to Notification.Decode. A non-zero status means the body itself
// could not be read.
func readNotification(r *http.Request) (transloadit.Notification, transloadit.FieldErrors, int) {
	var (
		n       transloadit.Notification
		present = map[string]bool{}
		errs    = transloadit.FieldErrors{}
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return n, nil, http.StatusBadRequest
		}
		for field, dst := range map[string]*string{fieldTransloadit: &n.Transloadit, fieldSignature: &n.Signature} {
			raw, ok := body[field]
			if !ok {
				continue
			}
			present[field] = true
			if err := json.Unmarshal(raw, dst); err != nil {
				errs.Add(field, "Not a valid string.")
			}
		}

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxNotificationBody); err != nil {
			return n, nil, http.StatusBadRequest
		}
		fallthrough

	case "application/x-www-form-urlencoded", "":
		if err := r.ParseForm(); err != nil {
			return n, nil, http.StatusBadRequest
		}
		for field, dst := range map[string]*string{fieldTransloadit: &n.Transloadit, fieldSignature: &n.Signature} {
			if values, ok := r.PostForm[field]; ok {
				present[field] = true
				*dst = values[0]
			}
		}

	default:
		io.Copy(io.Discard, r.Body)
		return n, nil, http.StatusUnsupportedMediaType
	}

	if len(errs) > 0 {
		return n, errs, 0
	}
	if present[fieldTransloadit] && present[fieldSignature] {
		return n, nil, 0
	}

	// Report blank problems on the fields that were sent alongside the
	// required errors for those that were not.
	_, _, errs = n.Decode()
	if errs == nil {
		errs = transloadit.FieldErrors{}
	}
	for _, field := range []string{fieldTransloadit, fieldSignature} {
		if !present[field] {
			errs[field] = []string{"This field is required."}
		}
	}
	return n, errs, 0
}
