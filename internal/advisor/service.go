package advisor

import (
	"context"
	"fmt"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
	"github.com/tigertalks/tigertalks-go/internal/genai"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/storage"
)

// DefaultRecommendationCount is how many courses a recommendation returns
// when the caller does not specify one.
const DefaultRecommendationCount = 5

// noPastCoursesHint nudges students toward richer recommendations.
const noPastCoursesHint = "To get more personalized recommendations, please add your past courses in the Settings page. This will help us recommend courses that build on your existing knowledge."

// UserStore loads student records.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*storage.User, error)
}

// RecommendationRecorder counts recommendation outcomes.
type RecommendationRecorder interface {
	RecordRecommendation(intent, status string)
}

// Recommendation is the hydrated result of one recommendation request.
type Recommendation struct {
	Courses []catalog.CourseDetails `json:"courses"`
	Intent  Intent                  `json:"intent"`
	Message string                  `json:"message,omitempty"`
}

// Service runs the full recommendation pipeline.
type Service struct {
	users      UserStore
	classifier *Classifier
	engine     *Engine
	prompts    *PromptBuilder
	llm        TextGenerator
	catalog    *catalog.Store
	rerank     RerankOptions
	count      int
	log        *logger.Logger
	metrics    RecommendationRecorder
}

// ServiceOptions wires the pipeline stages together.
type ServiceOptions struct {
	Users      UserStore
	Classifier *Classifier
	Engine     *Engine
	Prompts    *PromptBuilder
	LLM        TextGenerator
	Catalog    *catalog.Store
	Rerank     RerankOptions
	Count      int
}

// NewService creates a recommendation service.
func NewService(opts ServiceOptions, log *logger.Logger) (*Service, error) {
	if opts.Users == nil || opts.Classifier == nil || opts.Engine == nil ||
		opts.Prompts == nil || opts.LLM == nil || opts.Catalog == nil {
		return nil, fmt.Errorf("advisor service: missing dependency")
	}
	if opts.Count <= 0 {
		opts.Count = DefaultRecommendationCount
	}
	return &Service{
		users:      opts.Users,
		classifier: opts.Classifier,
		engine:     opts.Engine,
		prompts:    opts.Prompts,
		llm:        opts.LLM,
		catalog:    opts.Catalog,
		rerank:     opts.Rerank,
		count:      opts.Count,
		log:        log.WithModule("advisor"),
	}, nil
}

// SetMetrics attaches a recommendation recorder.
func (s *Service) SetMetrics(r RecommendationRecorder) {
	s.metrics = r
}

// Recommend runs the pipeline for a student. query may be empty, in which
// case recommendations come from the profile alone. Generation failures
// propagate; there is no safe default list of courses to fabricate.
func (s *Service) Recommend(ctx context.Context, userID, query string) (*Recommendation, error) {
	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	cls := Classification{Intent: IntentGeneric}
	if query != "" {
		cls = s.classifier.Classify(ctx, query)
	}

	candidates, err := s.engine.Retrieve(ctx, cls, profile, query)
	if err != nil {
		s.record(cls.Intent, "error")
		return nil, err
	}
	candidates = Rerank(candidates, profile, s.rerank)
	if len(candidates) == 0 {
		s.record(cls.Intent, "empty")
		return nil, apperrors.NewValidationError("query", "no candidate courses available")
	}

	system, contextMsg := s.prompts.BuildRecommendation(ctx, cls, profile, candidates, query, s.count)
	codes, err := s.llm.CourseCodes(ctx, "recommend", genai.CompletionRequest{
		System:      system,
		User:        contextMsg,
		Temperature: 0.7,
		MaxTokens:   500,
	}, s.count)
	if err != nil {
		s.record(cls.Intent, "error")
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}

	rec := &Recommendation{Intent: cls.Intent}
	for _, code := range codes {
		details, err := s.catalog.Details(ctx, code)
		if err != nil {
			s.log.WithError(err).WithField("course", code).Warn("Recommended course missing from catalog")
			continue
		}
		rec.Courses = append(rec.Courses, details)
	}
	if len(profile.PastCourses) == 0 {
		rec.Message = noPastCoursesHint
	}

	s.record(cls.Intent, "success")
	return rec, nil
}

// loadProfile reads the student record. An unknown user degrades to an empty
// profile so new students still get generic recommendations.
func (s *Service) loadProfile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.log.WithField("user_id", userID).Warn("User not found, using empty profile")
			return Profile{}, nil
		}
		return Profile{}, fmt.Errorf("load student profile: %w", err)
	}
	return ProfileFromUser(user), nil
}

func (s *Service) record(intent Intent, status string) {
	if s.metrics != nil {
		s.metrics.RecordRecommendation(string(intent), status)
	}
}
