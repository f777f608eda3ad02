// Package site implements the site catalogue operations on top of a record
// store: create, list, get, partial update and delete with file reclaim.
package site

import (
	"context"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
	"github.com/dharsanguruparan/HoloHeri/internal/metrics"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
	// MaxPage keeps (page-1)*limit inside int for every accepted limit.
	MaxPage = math.MaxInt / MaxLimit

	uploadsSegment = "uploads/"
)

// Store persists site records.
type Store interface {
	Create(ctx context.Context, site *model.Site) error
	Get(ctx context.Context, id string) (*model.Site, error)
	List(ctx context.Context, filter model.SiteFilter) ([]model.Site, error)
	Count(ctx context.Context, filter model.SiteFilter) (int, error)
	Update(ctx context.Context, site *model.Site) error
	Delete(ctx context.Context, id string) error
}

// Reclaimer removes stored upload files. Implementations must not block the
// caller and report failures through their own logging.
type Reclaimer interface {
	Reclaim(names []string)
}

// Mirrorer copies a stored 3D model to the object store.
type Mirrorer interface {
	Mirror(name string)
}

// Input carries the text fields of a submission (a key is present only when
// the client sent it) and the stored names of the uploaded files.
type Input struct {
	Values  map[string]string
	Uploads map[model.MediaField]string
}

// ListQuery holds the raw listing parameters.
type ListQuery struct {
	Page  string
	Limit string
	Tag   string
	Query string
}

// ListResult is one page of the listing.
type ListResult struct {
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
	Total int          `json:"total"`
	Pages int          `json:"pages"`
	Data  []model.Site `json:"data"`
}

// Service orchestrates site operations.
type Service struct {
	store     Store
	reclaimer Reclaimer
	mirrorer  Mirrorer
	baseURL   string
	policy    *bluemonday.Policy
	log       *zap.SugaredLogger
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithMirrorer enables copying uploaded models to the object store.
func WithMirrorer(m Mirrorer) Option {
	return func(s *Service) { s.mirrorer = m }
}

// WithLogger sets the logger used for background failures.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service. baseURL is the public API origin used to
// build media URLs, e.g. "http://localhost:4000".
func NewService(store Store, reclaimer Reclaimer, baseURL string, opts ...Option) *Service {
	s := &Service{
		store:     store,
		reclaimer: reclaimer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		policy:    bluemonday.UGCPolicy(),
		log:       zap.S(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the input and persists a new site.
func (s *Service) Create(ctx context.Context, in Input) (*model.Site, error) {
	now := s.now()
	site := &model.Site{
		ID:        uuid.NewString(),
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.applyValues(site, in.Values)
	s.applyUploads(site, in.Uploads)
	if err := validateSite(site); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	s.mirror(in.Uploads)
	metrics.SiteOperations.WithLabelValues("create").Inc()
	return site, nil
}

// List returns one page of sites, newest first.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page, limit := ParsePaging(q.Page, q.Limit)
	filter := model.SiteFilter{
		Tag:   strings.TrimSpace(q.Tag),
		Query: strings.TrimSpace(q.Query),
		Skip:  (page - 1) * limit,
		Limit: limit,
	}

	var (
		total int
		data  []model.Site
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.store.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	if data == nil {
		data = []model.Site{}
	}
	return &ListResult{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
		Data:  data,
	}, nil
}

// Get returns the site with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Site, error) {
	return s.store.Get(ctx, id)
}

// Update merges the fields present in the input into the stored site. The
// file previously referenced by a replaced media field is left on disk.
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.Site, error) {
	site, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.applyValues(site, in.Values)
	s.applyUploads(site, in.Uploads)
	if err := validateSite(site); err != nil {
		return nil, err
	}
	site.UpdatedAt = s.now()
	if err := s.store.Update(ctx, site); err != nil {
		return nil, fmt.Errorf("update site %s: %w", id, err)
	}
	s.mirror(in.Uploads)
	metrics.SiteOperations.WithLabelValues("update").Inc()
	return site, nil
}

// Delete removes the site and hands its stored files to the reclaimer. File
// removal is best effort and never fails the request.
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	site, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if names := StoredNames(site); len(names) > 0 && s.reclaimer != nil {
		s.reclaimer.Reclaim(names)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("delete site %s: %w", id, err)
	}
	metrics.SiteOperations.WithLabelValues("delete").Inc()
	return id, nil
}

// MediaURL builds the public URL of a stored upload.
func (s *Service) MediaURL(storedName string) string {
	return s.baseURL + "/" + uploadsSegment + storedName
}

func (s *Service) applyValues(site *model.Site, values map[string]string) {
	for key, raw := range values {
		switch key {
		case "title":
			site.Title = strings.TrimSpace(raw)
		case "location":
			site.Location = strings.TrimSpace(raw)
		case "tags":
			site.Tags = ParseTags(raw)
		case "summary":
			site.Summary = s.policy.Sanitize(raw)
		case "history":
			site.History = s.policy.Sanitize(raw)
		case "architecture":
			site.Architecture = s.policy.Sanitize(raw)
		case "conservation":
			site.Conservation = s.policy.Sanitize(raw)
		case "modernRelevance":
			site.ModernRelevance = s.policy.Sanitize(raw)
		case "oldStructureDesc":
			site.OldStructureDesc = s.policy.Sanitize(raw)
		case "newStructureDesc":
			site.NewStructureDesc = s.policy.Sanitize(raw)
		default:
			// Media fields may be set explicitly as text, e.g. to clear them.
			for _, field := range model.MediaFields {
				if key == string(field) {
					site.SetMedia(field, strings.TrimSpace(raw))
				}
			}
		}
	}
}

func (s *Service) applyUploads(site *model.Site, uploads map[model.MediaField]string) {
	for field, name := range uploads {
		site.SetMedia(field, s.MediaURL(name))
	}
}

func (s *Service) mirror(uploads map[model.MediaField]string) {
	if s.mirrorer == nil {
		return
	}
	if name, ok := uploads[model.FieldGLB]; ok {
		s.mirrorer.Mirror(name)
	}
}

// ParseTags splits a comma separated list, trimming entries and dropping
// empty ones. Order is kept and duplicates are not removed.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ParsePaging interprets raw page and limit parameters. Non-numeric values
// fall back to the defaults; page is clamped to [1, MaxPage] and limit to
// [1, MaxLimit].
func ParsePaging(pageRaw, limitRaw string) (page, limit int) {
	page = toInt(pageRaw, DefaultPage)
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit = toInt(limitRaw, DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func toInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// StoredNames derives the upload file names referenced by the site's media
// fields. Values that do not point into the upload directory, or whose
// remainder is not a plain file name, are skipped.
func StoredNames(site *model.Site) []string {
	var names []string
	for _, field := range model.MediaFields {
		value := site.Media(field)
		idx := strings.LastIndex(value, uploadsSegment)
		if idx < 0 {
			continue
		}
		name := value[idx+len(uploadsSegment):]
		if name == "" || name == "." || name == ".." || path.Base(name) != name {
			continue
		}
		names = append(names, name)
	}
	return names
}

func validateSite(site *model.Site) error {
	err := validation.ValidateStruct(site,
		validation.Field(&site.Title, validation.Required.Error("Title is required")),
	)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validation.Errors); ok {
		for _, fieldErr := range errs {
			return &domain.ValidationError{Message: fieldErr.Error()}
		}
	}
	return &domain.ValidationError{Message: err.Error()}
}
