package router

import (
	"context"
	"errors"
	"testing"

	"docqa/internal/domain"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	return f.reply, f.err
}

func fakeAnswer(reply string) AnswerFunc {
	return func(ctx context.Context, query string, topK int) (domain.Answer, error) {
		return domain.Answer{Text: reply}, nil
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  Task
	}{
		{"rag verdict", "rag", nil, TaskRAG},
		{"db verdict", "db", nil, TaskDB},
		{"db verdict with noise", "  DB\n", nil, TaskDB},
		{"garbage defaults to rag", "maybe sql?", nil, TaskRAG},
		{"classifier failure defaults to rag", "", errors.New("down"), TaskRAG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&fakeLLM{reply: tt.reply, err: tt.err}, fakeAnswer("x"), nil, nil)
			if got := r.Classify(context.Background(), "query"); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouteRequiresAuthorization(t *testing.T) {
	r := New(&fakeLLM{reply: "rag"}, fakeAnswer("x"), nil, nil)
	_, err := r.Route(context.Background(), TaskContext{Authorized: false, Query: "q"}, 5)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestRouteToRAG(t *testing.T) {
	r := New(&fakeLLM{reply: "rag"}, fakeAnswer("the answer"), nil, nil)
	tc := TaskContext{Authorized: true, User: "alice", Query: "what is this?"}
	res, err := r.Route(context.Background(), tc, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Task != TaskRAG || res.Answer.Text != "the answer" {
		t.Errorf("result = %+v", res)
	}
}

type fakeDB struct{ out string }

func (f fakeDB) Run(ctx context.Context, query string) (string, error) { return f.out, nil }

func TestRouteToDB(t *testing.T) {
	r := New(&fakeLLM{reply: "db"}, fakeAnswer("x"), fakeDB{out: "42 rows"}, nil)
	tc := TaskContext{Authorized: true, Query: "SELECT COUNT(*) FROM cnc_data;"}
	res, err := r.Route(context.Background(), tc, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Task != TaskDB || res.DBResult != "42 rows" {
		t.Errorf("result = %+v", res)
	}
}

func TestRouteDBWithoutRunner(t *testing.T) {
	r := New(&fakeLLM{reply: "db"}, fakeAnswer("x"), nil, nil)
	_, err := r.Route(context.Background(), TaskContext{Authorized: true, Query: "SELECT 1"}, 5)
	if !errors.Is(err, ErrNoDBRunner) {
		t.Errorf("error = %v, want ErrNoDBRunner", err)
	}
}

func TestRouteHonorsPresetTask(t *testing.T) {
	// when the caller already classified, the llm is not consulted
	r := New(&fakeLLM{err: errors.New("should not be called")}, fakeAnswer("ok"), nil, nil)
	tc := TaskContext{Task: TaskRAG, Authorized: true, Query: "q"}
	res, err := r.Route(context.Background(), tc, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer.Text != "ok" {
		t.Errorf("result = %+v", res)
	}
}
