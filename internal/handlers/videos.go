package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cattube/internal/logger"
	"cattube/internal/middleware"
	"cattube/internal/models"
	"cattube/internal/services"
	"cattube/internal/transloadit"
	"cattube/internal/web"
)

const notificationPath = "/notification"

type videoService interface {
	Authorize(notifyURL string) (*transloadit.Authorization, error)
	Create(ctx context.Context, ownerID uuid.UUID, req models.CreateVideoRequest) (*models.Video, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Video, error)
	List(ctx context.Context) ([]*models.Video, error)
	DeleteAll(ctx context.Context, by uuid.UUID) (int, error)
}

type VideoHandler struct {
	videos        videoService
	sessions      *middleware.Sessions
	pages         *web.Renderer
	publicBaseURL string
}

// NewVideoHandler serves the video pages and JSON detail. publicBaseURL, when
// set, replaces the request origin in the notify URL given to Transloadit.
func NewVideoHandler(videos *services.VideoService, sessions *middleware.Sessions, pages *web.Renderer, publicBaseURL string) *VideoHandler {
	return &VideoHandler{videos: videos, sessions: sessions, pages: pages, publicBaseURL: publicBaseURL}
}

type listPage struct {
	Page
	Videos []*models.Video
}

type detailPage struct {
	Page
	Video *models.Video
}

type formPage struct {
	Page
	Params    string
	Signature string
	Form      models.CreateVideoRequest
	Errors    map[string][]string
}

// Detail returns the JSON view polled by the watch page.
func (h *VideoHandler) Detail(w http.ResponseWriter, r *http.Request) {
	v, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.NewVideoDetail(v))
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.List(r.Context())
	if err != nil {
		logger.Errorf("listing videos: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	render(w, h.pages, http.StatusOK, web.PageVideoList, listPage{Page: currentPage(h.sessions, r), Videos: videos})
}

// Mine lists the caller's videos for API clients.
func (h *VideoHandler) Mine(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videos.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	owner := middleware.GetUserID(r.Context())
	mine := make([]*models.Video, 0, len(videos))
	for _, v := range videos {
		if v.OwnerID == owner {
			mine = append(mine, v)
		}
	}
	writeJSON(w, http.StatusOK, mine)
}

func (h *VideoHandler) Watch(w http.ResponseWriter, r *http.Request) {
	v, ok := h.lookup(w, r)
	if !ok {
		return
	}
	render(w, h.pages, http.StatusOK, web.PageVideoDetail, detailPage{Page: currentPage(h.sessions, r), Video: v})
}

// lookup resolves the {id} URL parameter. Unknown and malformed ids both
// produce an empty 404.
func (h *VideoHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return nil, false
	}

	v, err := h.videos.Get(r.Context(), id)
	if err != nil {
		var nf *services.NotFoundError
		if errors.As(err, &nf) {
			w.WriteHeader(http.StatusNotFound)
		} else {
			logger.Errorf("loading video %s: %v", id, err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return nil, false
	}
	return v, true
}

func (h *VideoHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, models.CreateVideoRequest{}, nil)
}

func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	req := models.CreateVideoRequest{
		Title:      r.PostForm.Get("title"),
		AssemblyID: r.PostForm.Get("assembly_id"),
	}

	v, err := h.videos.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		switch e := err.(type) {
		case *services.ValidationError:
			h.renderForm(w, r, req, e.Fields)
		case *services.ConflictError:
			h.renderForm(w, r, req, map[string][]string{e.Field: {e.Message}})
		default:
			logger.Errorf("creating video: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/watch/"+v.ID.String(), http.StatusFound)
}

func (h *VideoHandler) renderForm(w http.ResponseWriter, r *http.Request, form models.CreateVideoRequest, errs map[string][]string) {
	auth, err := h.videos.Authorize(h.notifyURL(r))
	if err != nil {
		logger.Errorf("signing upload params: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	render(w, h.pages, http.StatusOK, web.PageVideoForm, formPage{
		Page:      currentPage(h.sessions, r),
		Params:    auth.Params,
		Signature: auth.Signature,
		Form:      form,
		Errors:    errs,
	})
}

func (h *VideoHandler) notifyURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + notificationPath
	}
	return middleware.RequestScheme(r) + "://" + r.Host + notificationPath
}

func (h *VideoHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.videos.DeleteAll(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		logger.Errorf("deleting videos: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	logger.Infof("Deleted %d videos", n)
	http.Redirect(w, r, "/", http.StatusFound)
}
