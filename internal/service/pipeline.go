package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"biorag/internal/domain"
	"biorag/internal/logging"
)

// Stage names, in execution order.
const (
	StageEmbedQuery   = "embed_query"
	StageSearch       = "search_vector_db"
	StageFormatAnswer = "format_answer"
)

// DefaultTopK is the number of tools retrieved per question.
const DefaultTopK = 3

// QueryState is owned by a single pipeline invocation.
type QueryState struct {
	Question  string
	Embedding []float32
	Retrieved []domain.RetrievedTool
	Answer    string
	// Completed lists the stages that finished, in order.
	Completed []string

	searched bool
}

// Stage is one step of the query pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *QueryState) error
}

// QueryOptions configures retrieval and synthesis.
type QueryOptions struct {
	TopK int
	// MaxDescriptionSentences condenses long descriptions in the prompt
	// context; 0 keeps them whole.
	MaxDescriptionSentences int
	Generate                domain.GenerateOptions
}

// PipelineOption configures optional QueryPipeline behaviour.
type PipelineOption func(*QueryPipeline)

// WithPipelineLogger sets the logger for stage progress.
func WithPipelineLogger(l *zap.Logger) PipelineOption {
	return func(p *QueryPipeline) { p.logger = l }
}

// WithSummarizer sets the summarizer used to condense descriptions.
func WithSummarizer(s domain.Summarizer) PipelineOption {
	return func(p *QueryPipeline) { p.summarizer = s }
}

// QueryPipeline answers a question with embed, search and synthesize stages
// run exactly once each, in that order. A failing stage ends the query.
type QueryPipeline struct {
	embedder   domain.Embedder
	store      domain.VectorStore
	llm        domain.LanguageModel
	summarizer domain.Summarizer
	opts       QueryOptions
	logger     *zap.Logger
	stages     []Stage
}

// NewQueryPipeline wires the three stages over the given capabilities.
func NewQueryPipeline(embedder domain.Embedder, store domain.VectorStore, llm domain.LanguageModel, opts QueryOptions, options ...PipelineOption) *QueryPipeline {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	p := &QueryPipeline{
		embedder: embedder,
		store:    store,
		llm:      llm,
		opts:     opts,
	}
	for _, o := range options {
		o(p)
	}
	p.logger = logging.OrNop(p.logger)
	p.stages = []Stage{
		{Name: StageEmbedQuery, Run: p.embedQuery},
		{Name: StageSearch, Run: p.searchVectorDB},
		{Name: StageFormatAnswer, Run: p.formatAnswer},
	}
	return p
}

// Stages returns the ordered stage list.
func (p *QueryPipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Answer runs the full pipeline and returns the synthesized answer.
func (p *QueryPipeline) Answer(ctx context.Context, question string) (string, error) {
	st, err := p.Run(ctx, question)
	if err != nil {
		return "", err
	}
	return st.Answer, nil
}

// Run executes all stages and returns the final state.
func (p *QueryPipeline) Run(ctx context.Context, question string) (*QueryState, error) {
	return p.run(ctx, question, p.stages)
}

// Retrieve runs the embed and search stages only.
func (p *QueryPipeline) Retrieve(ctx context.Context, question string) (*QueryState, error) {
	return p.run(ctx, question, p.stages[:2])
}

func (p *QueryPipeline) run(ctx context.Context, question string, stages []Stage) (*QueryState, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	st := &QueryState{Question: question}
	for _, s := range stages {
		if err := s.Run(ctx, st); err != nil {
			p.logger.Warn("query stage failed", zap.String("stage", s.Name), zap.Error(err))
			return st, &domain.StageError{Stage: s.Name, Err: err}
		}
		st.Completed = append(st.Completed, s.Name)
		p.logger.Debug("query stage done", zap.String("stage", s.Name))
	}
	return st, nil
}

func (p *QueryPipeline) embedQuery(ctx context.Context, st *QueryState) error {
	if st.Question == "" {
		return domain.ErrEmptyQuestion
	}
	vec, err := p.embedder.Embed(ctx, st.Question)
	if err != nil {
		return wrap(domain.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: provider returned an empty vector", domain.ErrEmbedding)
	}
	st.Embedding = vec
	return nil
}

func (p *QueryPipeline) searchVectorDB(ctx context.Context, st *QueryState) error {
	if st.Embedding == nil {
		return fmt.Errorf("%w: %s needs %s", domain.ErrStageOrder, StageSearch, StageEmbedQuery)
	}
	hits, err := p.store.Search(ctx, st.Embedding, p.opts.TopK)
	if err != nil {
		return wrap(domain.ErrSearch, err)
	}
	if len(hits) > p.opts.TopK {
		hits = hits[:p.opts.TopK]
	}
	st.Retrieved = make([]domain.RetrievedTool, 0, len(hits))
	for _, h := range hits {
		st.Retrieved = append(st.Retrieved, h.Retrieved())
	}
	st.searched = true
	p.logger.Debug("retrieved tools", zap.Int("count", len(st.Retrieved)))
	return nil
}

func (p *QueryPipeline) formatAnswer(ctx context.Context, st *QueryState) error {
	if !st.searched {
		return fmt.Errorf("%w: %s needs %s", domain.ErrStageOrder, StageFormatAnswer, StageSearch)
	}
	prompt := BuildPrompt(st.Question, p.condense(st.Retrieved))
	answer, err := p.llm.Generate(ctx, prompt, p.opts.Generate)
	if err != nil {
		return wrap(domain.ErrSynthesis, err)
	}
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("%w: model returned an empty answer", domain.ErrSynthesis)
	}
	st.Answer = strings.TrimSpace(answer)
	return nil
}

// condense shortens descriptions for the prompt without touching st.Retrieved.
func (p *QueryPipeline) condense(tools []domain.RetrievedTool) []domain.RetrievedTool {
	if p.summarizer == nil || p.opts.MaxDescriptionSentences <= 0 {
		return tools
	}
	out := make([]domain.RetrievedTool, len(tools))
	for i, t := range tools {
		out[i] = t
		if s, err := p.summarizer.Summarize(t.Description, p.opts.MaxDescriptionSentences); err == nil && s != "" {
			out[i].Description = s
		}
	}
	return out
}

func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
