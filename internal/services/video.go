package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"cattube/internal/config"
	"cattube/internal/events"
	"cattube/internal/logger"
	"cattube/internal/metrics"
	"cattube/internal/models"
	"cattube/internal/repository"
	"cattube/internal/transloadit"
)

const (
	maxTitleLength      = 256
	maxAssemblyIDLength = 256

	msgSignatureMismatch = "Signature does not match payload."
)

type VideoService struct {
	videos    repository.VideoStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	signer    *transloadit.Signer

	secret         string
	verify         bool
	videosBase     string
	thumbnailsBase string
}

// NewVideoService wires the video workflow. publisher may be nil when no
// event transport is configured.
func NewVideoService(videos repository.VideoStore, cfg *config.Config, publisher events.Publisher, m *metrics.Metrics) *VideoService {
	creds := transloadit.Credentials{Key: cfg.TransloaditKey, Secret: cfg.TransloaditSecret}
	return &VideoService{
		videos:         videos,
		publisher:      publisher,
		metrics:        m,
		signer:         transloadit.NewSigner(creds, cfg.TransloaditTemplateID),
		secret:         cfg.TransloaditSecret,
		verify:         cfg.TransloaditVerifyNotifications,
		videosBase:     cfg.VideosBaseURL(),
		thumbnailsBase: cfg.ThumbnailsBaseURL(),
	}
}

// Authorize signs upload parameters that make Transloadit call notifyURL
// when the assembly finishes.
func (s *VideoService) Authorize(notifyURL string) (*transloadit.Authorization, error) {
	auth, err := s.signer.Authorize(notifyURL)
	if err != nil {
		return nil, err
	}
	s.metrics.Authorizations.Inc()
	return auth, nil
}

func (s *VideoService) Create(ctx context.Context, ownerID uuid.UUID, req models.CreateVideoRequest) (*models.Video, error) {
	title := strings.TrimSpace(req.Title)
	assemblyID := strings.TrimSpace(req.AssemblyID)

	verr := &ValidationError{}
	checkCharField(verr, "title", title, maxTitleLength)
	checkCharField(verr, "assembly_id", assemblyID, maxAssemblyIDLength)
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	v, err := s.videos.Create(ctx, title, assemblyID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Field: "assembly_id", Message: "Video with this Assembly id already exists."}
		}
		return nil, err
	}

	s.metrics.VideosCreated.Inc()
	logger.Infof("Created video %s for assembly %s", v.ID, v.AssemblyID)
	return v, nil
}

func checkCharField(verr *ValidationError, field, value string, max int) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		verr.add(field, "This field is required.")
	case n > max:
		verr.add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n))
	}
}

// Reconcile applies a transcoder notification to the matching video.
func (s *VideoService) Reconcile(ctx context.Context, n transloadit.Notification) (*models.Video, error) {
	assembly, out, ferrs := n.Decode()
	if ferrs != nil {
		s.metrics.Notifications.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, &ValidationError{Fields: ferrs}
	}

	if s.verify {
		if err := n.Verify(s.secret); err != nil {
			logger.Warnf("Rejected notification for assembly %s: %v", out.AssemblyID, err)
			s.metrics.Notifications.WithLabelValues(metrics.OutcomeBadSig).Inc()
			return nil, &ValidationError{Fields: map[string][]string{"signature": {msgSignatureMismatch}}}
		}
	}

	if assembly.Error != "" {
		logger.Warnf("Assembly %s reported error %q (ok=%q)", out.AssemblyID, assembly.Error, assembly.Ok)
	}

	logger.Debugf("Getting %s", out.AssemblyID)
	v, err := s.videos.GetByAssemblyID(ctx, out.AssemblyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Notifications.WithLabelValues(metrics.OutcomeUnknown).Inc()
			return nil, &NotFoundError{Message: "Video not found"}
		}
		s.metrics.Notifications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	v.TranscodedURL = transloadit.JoinURL(s.videosBase, out.AssemblyID, out.Watermarked)
	v.ThumbnailURL = transloadit.JoinURL(s.thumbnailsBase, out.AssemblyID, out.Thumbnail)

	if err := s.videos.Update(ctx, v); err != nil {
		s.metrics.Notifications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("saving video %s: %w", v.ID, err)
	}
	s.metrics.Notifications.WithLabelValues(metrics.OutcomeReconciled).Inc()
	logger.Infof("Reconciled video %s: transcoded %s", v.ID, v.TranscodedURL)

	s.publish(ctx, v)
	return v, nil
}

func (s *VideoService) publish(ctx context.Context, v *models.Video) {
	if s.publisher == nil {
		return
	}

	ev := models.VideoTranscoded{
		VideoID:       v.ID,
		OwnerID:       v.OwnerID,
		AssemblyID:    v.AssemblyID,
		TranscodedURL: v.TranscodedURL,
		ThumbnailURL:  v.ThumbnailURL,
		At:            time.Now().UTC(),
	}
	if err := s.publisher.PublishVideoTranscoded(ctx, ev); err != nil {
		s.metrics.EventFailures.WithLabelValues(models.EventVideoTranscoded).Inc()
		logger.Warnf("Failed to publish %s for video %s: %v", models.EventVideoTranscoded, v.ID, err)
	}
}

func (s *VideoService) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v, err := s.videos.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "Video not found"}
	}
	return v, err
}

func (s *VideoService) List(ctx context.Context) ([]*models.Video, error) {
	return s.videos.List(ctx)
}

// DeleteAll removes every video record. The transcoded files are left in the
// bucket.
func (s *VideoService) DeleteAll(ctx context.Context, by uuid.UUID) (int, error) {
	logger.Warnf("Deleting all the videos (requested by %s)", by)
	n, err := s.videos.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.VideosDeleted.Add(float64(n))
	return n, nil
}
