package generate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"examgen-server/internal/llm"
	"examgen-server/internal/model"
)

// generationXP is awarded to the requesting user per completed run.
const generationXP = 10

// fullPromptThreshold: topic strings longer than this are treated as
// complete user prompts, not topic names, and skip context retrieval.
const fullPromptThreshold = 40

// Storage is the slice of the persistence layer the service needs.
type Storage interface {
	GetRubric(id int64) (model.Rubric, error)
	GetSubject(id int64) (model.Subject, error)
	GetSubjectByCode(code string) (model.Subject, error)
	CreateSubject(sub model.Subject) (int64, error)
	GetTopicByName(subjectID int64, name string) (model.Topic, error)
	CreateTopic(t model.Topic) (int64, error)
	SaveQuestionBatch(questions []model.Question) ([]int64, error)
	InsertExamHistory(h model.ExamHistory) (int64, error)
	LogActivity(activityType, description string, details map[string]any) error
	AwardXP(userID int64, username string, points int) error
}

// ContextSource retrieves reference passages for a topic query.
type ContextSource interface {
	QueryContext(ctx context.Context, query string, subjectID int64) []string
}

// ProviderPicker resolves an engine choice to a concrete backend.
type ProviderPicker interface {
	Pick(ctx context.Context, engine llm.Engine) (llm.Provider, string)
}

// Service orchestrates the full generation pipeline: cache lookup, task
// planning, context retrieval, parallel generation, and the single batch
// persistence write. All collaborators are injected; the service holds no
// global state.
type Service struct {
	store    Storage
	picker   ProviderPicker
	cache    *Cache
	contexts ContextSource
	workers  int
}

// NewService wires the pipeline together. workers <= 0 selects the default
// worker cap.
func NewService(st Storage, picker ProviderPicker, cache *Cache, contexts ContextSource, workers int) *Service {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{store: st, picker: picker, cache: cache, contexts: contexts, workers: workers}
}

// RunResult is the outcome of one generation run.
type RunResult struct {
	RunID        string           `json:"run_id"`
	Provider     string           `json:"provider"`
	Questions    []model.Question `json:"questions"`
	CacheHit     bool             `json:"cache_hit"`
	FallbackUsed bool             `json:"fallback_used"`
	Persisted    bool             `json:"persisted"`
	PersistError error            `json:"-"`
	Log          []string         `json:"log"`
}

func (r *RunResult) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// RubricParams tune a rubric-driven run.
type RubricParams struct {
	Topic      string
	BloomLevel model.BloomLevel
	Engine     llm.Engine
}

// GenerateFromRubric runs the full pipeline for a stored rubric. Errors
// are returned only for unusable input (missing rubric, invalid rubric);
// generation and persistence problems degrade into the RunResult.
func (s *Service) GenerateFromRubric(ctx context.Context, rubricID int64, p RubricParams) (*RunResult, error) {
	rubric, err := s.store.GetRubric(rubricID)
	if err != nil {
		return nil, fmt.Errorf("load rubric %d: %w", rubricID, err)
	}
	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	subject, err := s.store.GetSubject(rubric.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject %d: %w", rubric.SubjectID, err)
	}

	topic := p.Topic
	if topic == "" {
		topic = rubric.Name
	}
	level := p.BloomLevel
	if level == "" {
		level = model.BloomApply
	}

	return s.run(ctx, runSpec{
		subject:    subject,
		topic:      topic,
		level:      level,
		rubric:     &rubric,
		tasks:      PlanTasks(&rubric),
		engine:     p.Engine,
		activity:   "rubric_generation",
		durationMn: rubric.DurationMinutes,
	}), nil
}

// TopicParams tune a freeform topic run without a rubric.
type TopicParams struct {
	SubjectID  int64
	Topic      string
	BloomLevel model.BloomLevel
	Count      int
	Engine     llm.Engine
}

// GenerateForTopic runs the pipeline for an ad-hoc topic request. Without
// a rubric the run is a single task of generic questions.
func (s *Service) GenerateForTopic(ctx context.Context, p TopicParams) (*RunResult, error) {
	subject, err := s.store.GetSubject(p.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load subject %d: %w", p.SubjectID, err)
	}
	if p.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	count := p.Count
	if count <= 0 {
		count = 5
	}
	level := p.BloomLevel
	if level == "" {
		level = model.BloomApply
	}

	// No rubric means no type constraint: the task leaves the question
	// type open and the model chooses.
	return s.run(ctx, runSpec{
		subject: subject,
		topic:   p.Topic,
		level:   level,
		tasks: []model.GenerationTask{{
			Count:     count,
			MarksEach: 5,
		}},
		engine:   p.Engine,
		activity: "topic_generation",
	}), nil
}

// GenerateFromText runs the pipeline on a raw user prompt. The prompt is
// passed to the model directly as context and questions land under the
// General subject.
func (s *Service) GenerateFromText(ctx context.Context, text string, count int, engine llm.Engine) (*RunResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("prompt text is required")
	}
	if count <= 0 {
		count = 5
	}

	subject, err := s.generalSubject()
	if err != nil {
		return nil, err
	}

	return s.run(ctx, runSpec{
		subject: subject,
		topic:   text,
		level:   model.BloomApply,
		tasks: []model.GenerationTask{{
			Count:     count,
			MarksEach: 5,
		}},
		engine:   engine,
		activity: "prompt_generation",
	}), nil
}

// runSpec is the fully resolved input for one pipeline run.
type runSpec struct {
	subject    model.Subject
	topic      string
	level      model.BloomLevel
	rubric     *model.Rubric
	tasks      []model.GenerationTask
	engine     llm.Engine
	activity   string
	durationMn int
}

func (s *Service) run(ctx context.Context, spec runSpec) *RunResult {
	result := &RunResult{RunID: uuid.NewString()}

	fingerprint := Fingerprint(spec.subject.Name, spec.topic, spec.level, spec.rubric)
	if drafts, ok := s.cache.Get(fingerprint); ok {
		result.CacheHit = true
		result.Provider = "cache"
		result.logf("Cache hit for %q, returning stored questions.", spec.topic)
		s.finish(ctx, spec, result, drafts)
		return result
	}

	provider, providerName := s.picker.Pick(ctx, spec.engine)
	result.Provider = providerName
	result.logf("Generating %d task(s) for %q via %s.", len(spec.tasks), spec.topic, providerName)

	contextLines := s.contextFor(ctx, spec)

	inputs := make([]TaskInput, 0, len(spec.tasks))
	for _, task := range spec.tasks {
		in := PromptInput{
			Subject:         spec.subject.Name,
			Topic:           spec.topic,
			BloomLevel:      spec.level,
			QuestionType:    task.QuestionType,
			Count:           task.Count,
			MarksEach:       task.MarksEach,
			LearningOutcome: task.LearningOutcome,
			Context:         contextLines,
		}
		if spec.rubric != nil {
			in.Instructions = spec.rubric.AIInstructions
		}
		inputs = append(inputs, TaskInput{Task: task, Prompt: in})
	}

	results := ExecuteTasks(ctx, provider, inputs, s.workers)

	var drafts []model.QuestionDraft
	realCount := 0
	for _, r := range results {
		drafts = append(drafts, r.Drafts...)
		if r.Fallback {
			result.FallbackUsed = true
			result.logf("Task %s/%s used fallback questions after %d attempt(s).",
				r.Task.QuestionType, r.Task.LearningOutcome, r.Attempts)
		} else {
			realCount += len(r.Drafts)
		}
	}
	result.logf("Collected %d question(s), %d model-generated.", len(drafts), realCount)

	// The cache is written exactly once, after the run, and only when the
	// model produced something real. Fallback-only runs must stay
	// regenerable.
	if realCount > 0 {
		if err := s.cache.Put(fingerprint, drafts); err != nil {
			slog.Warn("cache write failed", "error", err)
		}
	}

	s.finish(ctx, spec, result, drafts)
	return result
}

// contextFor retrieves passages for the run. The General subject and long
// prompt-like topics skip retrieval and feed the input straight through.
func (s *Service) contextFor(ctx context.Context, spec runSpec) []string {
	if strings.EqualFold(spec.subject.Name, "General") || len(spec.topic) > fullPromptThreshold {
		return []string{"User Prompt: " + spec.topic}
	}
	return s.contexts.QueryContext(ctx, "Questions about "+spec.topic, spec.subject.ID)
}

// finish converts drafts to question records and performs the single batch
// write plus the bookkeeping that follows a run. Persistence failure keeps
// the questions in the result so the caller can surface them.
func (s *Service) finish(ctx context.Context, spec runSpec, result *RunResult, drafts []model.QuestionDraft) {
	topicID, err := s.ensureTopic(spec.subject.ID, spec.topic)
	if err != nil {
		result.PersistError = fmt.Errorf("resolve topic: %w", err)
		result.Questions = draftsToQuestions(drafts, 0, spec)
		return
	}

	questions := draftsToQuestions(drafts, topicID, spec)
	ids, err := s.store.SaveQuestionBatch(questions)
	if err != nil {
		result.PersistError = fmt.Errorf("save questions: %w", err)
		result.Questions = questions
		result.logf("Persistence failed; questions returned unsaved.")
		return
	}
	for i := range questions {
		questions[i].ID = ids[i]
	}
	result.Questions = questions
	result.Persisted = true

	totalMarks := 0
	for _, q := range questions {
		totalMarks += q.Marks
	}
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.QuestionText)
	}
	if _, err := s.store.InsertExamHistory(model.ExamHistory{
		SubjectName:    spec.subject.Name,
		TopicName:      spec.topic,
		QuestionsCount: len(questions),
		Marks:          totalMarks,
		Duration:       spec.durationMn,
		Questions:      texts,
	}); err != nil {
		slog.Warn("exam history write failed", "error", err)
	}

	if err := s.store.LogActivity(spec.activity,
		fmt.Sprintf("Generated %d questions for %s", len(questions), spec.topic),
		map[string]any{
			"run_id":    result.RunID,
			"subject":   spec.subject.Name,
			"provider":  result.Provider,
			"cache_hit": result.CacheHit,
			"fallback":  result.FallbackUsed,
		}); err != nil {
		slog.Warn("activity log write failed", "error", err)
	}

	if user := model.UserFromContext(ctx); user != nil {
		if err := s.store.AwardXP(user.ID, user.Username, generationXP); err != nil {
			slog.Warn("xp award failed", "user", user.Username, "error", err)
		}
	}
}

// ensureTopic finds or creates the topic row questions attach to.
func (s *Service) ensureTopic(subjectID int64, name string) (int64, error) {
	if t, err := s.store.GetTopicByName(subjectID, name); err == nil {
		return t.ID, nil
	}
	return s.store.CreateTopic(model.Topic{SubjectID: subjectID, Name: name})
}

// generalSubject finds or creates the catch-all subject for freeform runs.
func (s *Service) generalSubject() (model.Subject, error) {
	if sub, err := s.store.GetSubjectByCode("GEN"); err == nil {
		return sub, nil
	}
	id, err := s.store.CreateSubject(model.Subject{Code: "GEN", Name: "General"})
	if err != nil {
		return model.Subject{}, fmt.Errorf("create General subject: %w", err)
	}
	return model.Subject{ID: id, Code: "GEN", Name: "General", CreatedAt: time.Now()}, nil
}

func draftsToQuestions(drafts []model.QuestionDraft, topicID int64, spec runSpec) []model.Question {
	var rubricID *int64
	if spec.rubric != nil {
		id := spec.rubric.ID
		rubricID = &id
	}

	questions := make([]model.Question, 0, len(drafts))
	for _, d := range drafts {
		qt := model.QuestionType(d.QuestionType)
		if qt == "" {
			qt = model.TypeMCQ
		}
		q := model.Question{
			TopicID:       topicID,
			RubricID:      rubricID,
			QuestionText:  d.Question,
			QuestionType:  qt,
			Options:       d.Options,
			CorrectAnswer: d.CorrectAnswer,
			Explanation:   d.Explanation,
			Marks:         d.Marks,
			BloomLevel:    d.BloomLevel,
			CourseOutcome: d.CourseOutcome,
			Status:        model.StatusDraft,
		}
		if slices.Contains(model.KnownLearningOutcomes, d.LearningOutcome) {
			q.LearningOutcome = d.LearningOutcome
		}
		questions = append(questions, q)
	}
	return questions
}
