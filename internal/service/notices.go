package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

var (
	titlePolicy = bluemonday.StrictPolicy()
	bodyPolicy  = bluemonday.UGCPolicy()
)

// NoticeService publishes notices and decides who sees them.
type NoticeService struct {
	store   storage.Store
	audit   *audit.Logger
	metrics *metrics.Metrics
}

// NewNoticeService creates a NoticeService.
func NewNoticeService(store storage.Store, auditLog *audit.Logger, m *metrics.Metrics) *NoticeService {
	return &NoticeService{store: store, audit: auditLog, metrics: m}
}

// NoticeInput describes a new notice. An empty Recipients list addresses the
// whole society.
type NoticeInput struct {
	Title       string
	Description string
	ImageURL    string
	Recipients  []string
}

// CreateNotice publishes a notice in the actor's society.
func (s *NoticeService) CreateNotice(ctx context.Context, p models.Principal, in NoticeInput) (*models.Notice, error) {
	if err := requireRole(p, models.RoleAdmin, models.RoleOwner); err != nil {
		return nil, err
	}
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(titlePolicy.Sanitize(in.Title))
	if err := required("title", title); err != nil {
		return nil, err
	}

	var recipients []string
	for _, id := range in.Recipients {
		if id == "" || slices.Contains(recipients, id) {
			continue
		}
		if _, err := member(ctx, s.store, id, societyID, "recipient"); err != nil {
			return nil, err
		}
		recipients = append(recipients, id)
	}

	notice := &models.Notice{
		SocietyID:   societyID,
		CreatedBy:   p.ID,
		Title:       title,
		Description: bodyPolicy.Sanitize(in.Description),
		ImageURL:    in.ImageURL,
		Recipients:  recipients,
	}
	if err := s.store.CreateNotice(ctx, notice); err != nil {
		return nil, err
	}

	slog.Info("Notice created", "notice_id", notice.ID, "society_id", societyID, "recipients", len(recipients))
	return notice, nil
}

// VisibleNotices returns the notices p may see, newest first. Admins see every
// notice of their society. Everyone else sees notices they created, notices
// without recipients and notices addressed to them.
func (s *NoticeService) VisibleNotices(ctx context.Context, p models.Principal) ([]*models.Notice, error) {
	notices, err := s.societyNotices(ctx, p)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Notice, 0, len(notices))
	for _, n := range notices {
		if p.Role == models.RoleAdmin || n.CreatedBy == p.ID || addressedTo(n, p.ID) {
			visible = append(visible, n)
		}
	}

	read, err := s.store.ReadNoticeIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, n := range visible {
		n.Read = read[n.ID]
	}
	return visible, nil
}

// CountVisibleNotices counts notices addressed to p. Unlike VisibleNotices it
// does not count notices p created for someone else.
func (s *NoticeService) CountVisibleNotices(ctx context.Context, p models.Principal) (int, error) {
	notices, err := s.societyNotices(ctx, p)
	if err != nil {
		return 0, err
	}
	if p.Role == models.RoleAdmin {
		return len(notices), nil
	}

	count := 0
	for _, n := range notices {
		if addressedTo(n, p.ID) {
			count++
		}
	}
	return count, nil
}

// MarkRead records that p read a notice visible to them.
func (s *NoticeService) MarkRead(ctx context.Context, p models.Principal, noticeID string) error {
	notice, err := s.visibleNotice(ctx, p, noticeID)
	if err != nil {
		return err
	}
	return s.store.MarkNoticeRead(ctx, notice.ID, p.ID, now())
}

// DeleteNotice removes a notice in p's scope.
func (s *NoticeService) DeleteNotice(ctx context.Context, p models.Principal, noticeID string) error {
	notice, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return err
	}
	if err := authorize(s.metrics, p, scope.ResourceNotice, scope.NoticeRow(notice)); err != nil {
		return err
	}
	if err := s.store.DeleteNotice(ctx, noticeID); err != nil {
		return err
	}

	s.audit.Record(ctx, p, notice.SocietyID, audit.ActionNoticeDeleted, "notice", noticeID, notice.Title)
	return nil
}

func (s *NoticeService) societyNotices(ctx context.Context, p models.Principal) ([]*models.Notice, error) {
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	return s.store.ListNotices(ctx, societyID)
}

// visibleNotice loads one notice and hides it unless VisibleNotices would
// return it.
func (s *NoticeService) visibleNotice(ctx context.Context, p models.Principal, noticeID string) (*models.Notice, error) {
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	n, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if n.SocietyID != societyID {
		return nil, apperr.NotFound("notice", noticeID)
	}
	if p.Role != models.RoleAdmin && n.CreatedBy != p.ID && !addressedTo(n, p.ID) {
		return nil, apperr.NotFound("notice", noticeID)
	}
	return n, nil
}

// addressedTo reports whether a notice goes to the whole society or names id.
func addressedTo(n *models.Notice, id string) bool {
	return len(n.Recipients) == 0 || slices.Contains(n.Recipients, id)
}
