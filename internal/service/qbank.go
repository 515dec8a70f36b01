package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/metrics"
	"github.com/DukeRupert/medbank/internal/supabase"
)

// Rand is the source of randomness for question selection. Injected so
// tests can seed it for deterministic picks.
type Rand interface {
	Intn(n int) int
}

// NewLockedRand returns a seeded Rand safe for concurrent use.
func NewLockedRand(seed int64) Rand {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// QbankService serves the practice feature: per-user aggregates, question
// selection and answer grading. Aggregates come from database RPCs; raw
// reads carry the caller's token so row-level security scopes attempts.
type QbankService interface {
	Summary(ctx context.Context, ident *domain.Identity) (*domain.Summary, error)
	Topics(ctx context.Context, ident *domain.Identity) ([]domain.TopicCard, error)
	Specialties(ctx context.Context, ident *domain.Identity) ([]domain.SpecialtyCard, error)

	// NextQuestion picks a random unattempted question, optionally scoped
	// to a topic or specialty. Returns domain.ENOTFOUND when the pool is
	// exhausted.
	NextQuestion(ctx context.Context, ident *domain.Identity, topicSlug, specialtySlug string) (*domain.Question, error)

	// RecentAttempts returns the caller's latest attempts with running
	// totals.
	RecentAttempts(ctx context.Context, ident *domain.Identity, limit int) (*domain.PracticeSession, error)

	// Answer grades one answer against the stored correct option and
	// records the attempt.
	Answer(ctx context.Context, ident *domain.Identity, questionID, selected string) (*domain.AnswerResult, error)

	// Submit grades and records a batch of answers.
	Submit(ctx context.Context, ident *domain.Identity, answers []domain.AnswerSubmission) (*domain.SubmitResult, error)
}

type qbankService struct {
	data   *supabase.DataClient
	rng    Rand
	logger *slog.Logger
}

// NewQbankService creates the qbank service.
func NewQbankService(data *supabase.DataClient, rng Rand, logger *slog.Logger) QbankService {
	if rng == nil {
		rng = NewLockedRand(time.Now().UnixNano())
	}
	return &qbankService{data: data, rng: rng, logger: logger}
}

func (s *qbankService) Summary(ctx context.Context, ident *domain.Identity) (*domain.Summary, error) {
	const op = "qbank.summary"

	var summary domain.Summary
	args := map[string]any{"p_user_id": ident.ID}
	if err := s.data.RPC(ctx, ident.Token, "practice_summary", args, &summary); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load practice summary")
	}
	if summary.Attempted > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Attempted)
	}
	return &summary, nil
}

func (s *qbankService) Topics(ctx context.Context, ident *domain.Identity) ([]domain.TopicCard, error) {
	const op = "qbank.topics"

	var cards []domain.TopicCard
	args := map[string]any{"p_user_id": ident.ID}
	if err := s.data.RPC(ctx, ident.Token, "topic_progress", args, &cards); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load topics")
	}
	if cards == nil {
		cards = []domain.TopicCard{}
	}
	return cards, nil
}

func (s *qbankService) Specialties(ctx context.Context, ident *domain.Identity) ([]domain.SpecialtyCard, error) {
	const op = "qbank.specialties"

	var cards []domain.SpecialtyCard
	args := map[string]any{"p_user_id": ident.ID}
	if err := s.data.RPC(ctx, ident.Token, "specialty_progress", args, &cards); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load specialties")
	}
	if cards == nil {
		cards = []domain.SpecialtyCard{}
	}
	return cards, nil
}

func (s *qbankService) NextQuestion(ctx context.Context, ident *domain.Identity, topicSlug, specialtySlug string) (*domain.Question, error) {
	const op = "qbank.next"

	// Candidate pool, then the caller's attempted set, then a random pick
	// from the difference. Selection state lives upstream; the pick itself
	// is the only local logic.
	query := "select=id"
	if topicSlug != "" {
		query += "&topic_slug=eq." + url.QueryEscape(topicSlug)
	}
	if specialtySlug != "" {
		query += "&specialty_slug=eq." + url.QueryEscape(specialtySlug)
	}

	var candidates []struct {
		ID string `json:"id"`
	}
	if err := s.data.Select(ctx, ident.Token, "questions", query, &candidates); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load questions")
	}

	var attempted []struct {
		QuestionID string `json:"question_id"`
	}
	attemptQuery := "select=question_id&user_id=eq." + url.QueryEscape(ident.ID)
	if err := s.data.Select(ctx, ident.Token, "attempts", attemptQuery, &attempted); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load attempts")
	}

	seen := make(map[string]struct{}, len(attempted))
	for _, a := range attempted {
		seen[a.QuestionID] = struct{}{}
	}
	pool := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; !ok {
			pool = append(pool, c.ID)
		}
	}
	if len(pool) == 0 {
		return nil, domain.Errorf(domain.ENOTFOUND, op, "No unattempted questions left")
	}

	id := pool[s.rng.Intn(len(pool))]

	question, err := s.fetchQuestion(ctx, ident.Token, id)
	if err != nil {
		return nil, err
	}
	metrics.QuestionsServed.Inc()
	return question, nil
}

func (s *qbankService) RecentAttempts(ctx context.Context, ident *domain.Identity, limit int) (*domain.PracticeSession, error) {
	const op = "qbank.session"

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var attempts []domain.Attempt
	query := "select=question_id,selected_option,correct,created_at&user_id=eq." + url.QueryEscape(ident.ID) +
		"&order=created_at.desc&limit=" + strconv.Itoa(limit)
	if err := s.data.Select(ctx, ident.Token, "attempts", query, &attempts); err != nil {
		return nil, domain.Upstream(err, op, "Failed to load attempts")
	}

	session := &domain.PracticeSession{Attempts: attempts, Total: len(attempts)}
	if session.Attempts == nil {
		session.Attempts = []domain.Attempt{}
	}
	for _, a := range attempts {
		if a.Correct {
			session.Correct++
		}
	}
	return session, nil
}

func (s *qbankService) Answer(ctx context.Context, ident *domain.Identity, questionID, selected string) (*domain.AnswerResult, error) {
	const op = "qbank.answer"

	if questionID == "" {
		return nil, domain.NewValidationError(op, "question_id", "must not be empty")
	}
	if strings.TrimSpace(selected) == "" {
		return nil, domain.NewValidationError(op, "selected_option", "must not be empty")
	}

	result, err := s.grade(ctx, op, questionID, selected)
	if err != nil {
		return nil, err
	}

	if err := s.recordAttempt(ctx, ident, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *qbankService) Submit(ctx context.Context, ident *domain.Identity, answers []domain.AnswerSubmission) (*domain.SubmitResult, error) {
	const op = "qbank.submit"

	if len(answers) == 0 {
		return nil, domain.NewValidationError(op, "answers", "must not be empty")
	}

	out := &domain.SubmitResult{Results: make([]domain.AnswerResult, 0, len(answers))}
	for _, a := range answers {
		result, err := s.grade(ctx, op, a.QuestionID, a.SelectedOption)
		if err != nil {
			return nil, err
		}
		if err := s.recordAttempt(ctx, ident, result); err != nil {
			return nil, err
		}
		out.Results = append(out.Results, *result)
		out.Total++
		if result.Correct {
			out.Correct++
		}
	}
	return out, nil
}

// grade reads the correct option with service privileges — the user JWT
// path never sees correct_option, so row security can hide the column.
func (s *qbankService) grade(ctx context.Context, op, questionID, selected string) (*domain.AnswerResult, error) {
	var row struct {
		CorrectOption string `json:"correct_option"`
		Explanation   string `json:"explanation"`
	}
	query := "select=correct_option,explanation&id=eq." + url.QueryEscape(questionID)
	err := s.data.SelectSingle(ctx, s.data.ServiceToken(), "questions", query, &row)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			return nil, domain.NotFound(op, "question", questionID)
		}
		return nil, domain.Upstream(err, op, "Failed to grade answer")
	}

	correct := strings.EqualFold(strings.TrimSpace(selected), row.CorrectOption)
	return &domain.AnswerResult{
		QuestionID:     questionID,
		Correct:        correct,
		CorrectOption:  row.CorrectOption,
		Explanation:    row.Explanation,
		SelectedOption: selected,
	}, nil
}

func (s *qbankService) recordAttempt(ctx context.Context, ident *domain.Identity, result *domain.AnswerResult) error {
	const op = "qbank.record"

	body := map[string]any{
		"user_id":         ident.ID,
		"question_id":     result.QuestionID,
		"selected_option": result.SelectedOption,
		"correct":         result.Correct,
	}
	if err := s.data.Insert(ctx, ident.Token, "attempts", body, nil); err != nil {
		return domain.Upstream(err, op, "Failed to record attempt")
	}

	label := "incorrect"
	if result.Correct {
		label = "correct"
	}
	metrics.AttemptsRecorded.WithLabelValues(label).Inc()
	return nil
}

func (s *qbankService) fetchQuestion(ctx context.Context, token, id string) (*domain.Question, error) {
	const op = "qbank.fetch"

	var row struct {
		ID            string                  `json:"id"`
		TopicSlug     string                  `json:"topic_slug"`
		SpecialtySlug string                  `json:"specialty_slug"`
		Stem          string                  `json:"stem"`
		Options       []domain.QuestionOption `json:"options"`
	}
	query := "select=id,topic_slug,specialty_slug,stem,options&id=eq." + url.QueryEscape(id)
	err := s.data.SelectSingle(ctx, token, "questions", query, &row)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			return nil, domain.NotFound(op, "question", id)
		}
		return nil, domain.Upstream(err, op, "Failed to load question")
	}

	return &domain.Question{
		ID:            row.ID,
		TopicSlug:     row.TopicSlug,
		SpecialtySlug: row.SpecialtySlug,
		Stem:          row.Stem,
		Options:       row.Options,
	}, nil
}
