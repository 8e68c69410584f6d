// Package router decides whether a query goes to document retrieval or to the
// structured-data path, and carries the per-request state between stages.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/domain"
)

// Task names a downstream pipeline.
type Task string

const (
	TaskRAG Task = "rag"
	TaskDB  Task = "db"
)

var (
	ErrUnauthorized = errors.New("router: unauthorized")
	ErrNoDBRunner   = errors.New("router: structured-data path not configured")
)

// TaskContext is the immutable per-request state threaded through the stages.
// Stages return updated copies rather than mutating shared maps.
type TaskContext struct {
	Task       Task
	Authorized bool
	User       string
	Query      string
}

// DBRunner executes structured-data queries. Injected by deployments that
// have a database wired; absent it, db-classified queries fail with
// ErrNoDBRunner.
type DBRunner interface {
	Run(ctx context.Context, query string) (string, error)
}

// AnswerFunc is the document-retrieval pipeline entry point.
type AnswerFunc func(ctx context.Context, query string, topK int) (domain.Answer, error)

const classifyPrompt = `Decide if the following query is a document retrieval question or a structured database query.
Respond only with 'rag' or 'db'.
Query: %s`

// Router classifies queries and dispatches them.
type Router struct {
	llm    domain.CompletionClient
	answer AnswerFunc
	db     DBRunner
	log    *slog.Logger
}

// Result is the outcome of a routed request: exactly one of Answer or
// DBResult is populated, according to Task.
type Result struct {
	Task     Task
	Answer   domain.Answer
	DBResult string
}

func New(llm domain.CompletionClient, answer AnswerFunc, db DBRunner, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{llm: llm, answer: answer, db: db, log: log.With("component", "router")}
}

// Classify asks the completion model which pipeline should handle the query.
// Anything other than an exact 'db' verdict routes to retrieval.
func (r *Router) Classify(ctx context.Context, query string) Task {
	reply, err := r.llm.Complete(ctx, fmt.Sprintf(classifyPrompt, query), 10, 0)
	if err != nil {
		r.log.Warn("classification failed, defaulting to rag", "error", err)
		return TaskRAG
	}
	if strings.ToLower(strings.TrimSpace(reply)) == string(TaskDB) {
		return TaskDB
	}
	return TaskRAG
}

// Route classifies the request and runs the matching pipeline. The caller is
// expected to have populated Authorized and User from token validation.
func (r *Router) Route(ctx context.Context, tc TaskContext, topK int) (Result, error) {
	if !tc.Authorized {
		return Result{}, ErrUnauthorized
	}
	task := tc.Task
	if task == "" {
		task = r.Classify(ctx, tc.Query)
	}
	switch task {
	case TaskDB:
		if r.db == nil {
			return Result{Task: task}, ErrNoDBRunner
		}
		out, err := r.db.Run(ctx, tc.Query)
		if err != nil {
			return Result{Task: task}, fmt.Errorf("db query: %w", err)
		}
		return Result{Task: task, DBResult: out}, nil
	default:
		answer, err := r.answer(ctx, tc.Query, topK)
		if err != nil {
			return Result{Task: TaskRAG}, err
		}
		return Result{Task: TaskRAG, Answer: answer}, nil
	}
}
