package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/supabase"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ContentService assembles read-only textbook content and reference
// ranges. Content is shared across users, so reads carry the anon key and
// responses are cacheable.
type ContentService interface {
	// Outline returns every specialty with its topics nested.
	Outline(ctx context.Context) ([]domain.SpecialtyOutline, error)

	// Specialty returns one specialty with its topics. An unknown slug
	// yields a synthesized empty outline rather than a 404.
	Specialty(ctx context.Context, slug string) (*domain.SpecialtyOutline, error)

	// Topic returns a topic with its ordered sections.
	// Returns domain.ENOTFOUND for an unknown slug.
	Topic(ctx context.Context, slug string) (*domain.TopicContent, error)

	// ReferenceRanges returns all groups with their items bucketed. The
	// two reads are independent and issued concurrently.
	ReferenceRanges(ctx context.Context) ([]domain.ReferenceRangeGroup, error)
}

type contentService struct {
	data   *supabase.DataClient
	titler cases.Caser
	logger *slog.Logger
}

// NewContentService creates the content service.
func NewContentService(data *supabase.DataClient, logger *slog.Logger) ContentService {
	return &contentService{
		data:   data,
		titler: cases.Title(language.English),
		logger: logger,
	}
}

func (s *contentService) Outline(ctx context.Context) ([]domain.SpecialtyOutline, error) {
	const op = "content.outline"

	var specialties []domain.Specialty
	if err := s.data.Select(ctx, "", "specialties", "select=id,slug,name&order=name.asc", &specialties); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load specialties")
	}

	var topics []domain.Topic
	if err := s.data.Select(ctx, "", "topics", "select=id,slug,name,specialty_slug,question_count&order=name.asc", &topics); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load topics")
	}

	bySpecialty := make(map[string][]domain.Topic, len(specialties))
	for _, t := range topics {
		bySpecialty[t.SpecialtySlug] = append(bySpecialty[t.SpecialtySlug], t)
	}

	outline := make([]domain.SpecialtyOutline, 0, len(specialties))
	for _, sp := range specialties {
		entry := domain.SpecialtyOutline{Specialty: sp, Topics: bySpecialty[sp.Slug]}
		if entry.Topics == nil {
			entry.Topics = []domain.Topic{}
		}
		outline = append(outline, entry)
	}
	return outline, nil
}

func (s *contentService) Specialty(ctx context.Context, slug string) (*domain.SpecialtyOutline, error) {
	const op = "content.specialty"

	var specialty domain.Specialty
	query := "select=id,slug,name&slug=eq." + url.QueryEscape(slug)
	err := s.data.SelectSingle(ctx, "", "specialties", query, &specialty)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			// Unknown specialties get a synthesized shell so the client
			// can render an empty page instead of erroring.
			return &domain.SpecialtyOutline{
				Specialty: domain.Specialty{
					Slug: slug,
					Name: s.displayName(slug),
				},
				Topics: []domain.Topic{},
			}, nil
		}
		return nil, domain.Upstream(err, op, "Failed to load specialty")
	}

	var topics []domain.Topic
	topicQuery := "select=id,slug,name,specialty_slug,question_count&specialty_slug=eq." + url.QueryEscape(slug) + "&order=name.asc"
	if err := s.data.Select(ctx, "", "topics", topicQuery, &topics); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load topics")
	}
	if topics == nil {
		topics = []domain.Topic{}
	}

	return &domain.SpecialtyOutline{Specialty: specialty, Topics: topics}, nil
}

func (s *contentService) Topic(ctx context.Context, slug string) (*domain.TopicContent, error) {
	const op = "content.topic"

	var topic domain.Topic
	query := "select=id,slug,name,specialty_slug,question_count&slug=eq." + url.QueryEscape(slug)
	err := s.data.SelectSingle(ctx, "", "topics", query, &topic)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			return nil, domain.NotFound(op, "topic", slug)
		}
		return nil, domain.Upstream(err, op, "Failed to load topic")
	}

	var sections []domain.TextbookSection
	sectionQuery := "select=id,topic_id,heading,body,position&topic_id=eq." + url.QueryEscape(topic.ID) + "&order=position.asc"
	if err := s.data.Select(ctx, "", "textbook_sections", sectionQuery, &sections); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load sections")
	}
	if sections == nil {
		sections = []domain.TextbookSection{}
	}

	return &domain.TopicContent{Topic: topic, Sections: sections}, nil
}

func (s *contentService) ReferenceRanges(ctx context.Context) ([]domain.ReferenceRangeGroup, error) {
	const op = "content.reference_ranges"

	var (
		groups []domain.ReferenceRangeGroup
		items  []domain.ReferenceRangeItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.data.Select(gctx, "", "reference_range_groups", "select=id,name&order=name.asc", &groups)
	})
	g.Go(func() error {
		return s.data.Select(gctx, "", "reference_range_items", "select=id,group_id,analyte,low,high,unit,note&order=analyte.asc", &items)
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load reference ranges")
	}

	byGroup := make(map[string][]domain.ReferenceRangeItem, len(groups))
	for _, item := range items {
		byGroup[item.GroupID] = append(byGroup[item.GroupID], item)
	}
	for i := range groups {
		groups[i].Items = byGroup[groups[i].ID]
		if groups[i].Items == nil {
			groups[i].Items = []domain.ReferenceRangeItem{}
		}
	}
	if groups == nil {
		groups = []domain.ReferenceRangeGroup{}
	}
	return groups, nil
}

// displayName turns a slug into a presentable name ("internal-medicine"
// -> "Internal Medicine").
func (s *contentService) displayName(slug string) string {
	return s.titler.String(strings.ReplaceAll(slug, "-", " "))
}
