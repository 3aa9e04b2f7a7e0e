package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"prompt2web_server/internal/ai"
	"prompt2web_server/internal/generation"
	"prompt2web_server/internal/preview"
	"prompt2web_server/internal/session"
	"prompt2web_server/internal/types"
	"prompt2web_server/internal/users"
)

type fakeStages struct {
	analysisErr error
	synthErr    error
	block       chan struct{}
}

var testProject = &types.Project{
	ProjectName: "landing",
	Files: []types.File{
		{Path: "index.html", Content: "<html><head></head><body><h1>Hi</h1></body></html>", Language: "html"},
		{Path: "css/style.css", Content: "h1{color:red}", Language: "css"},
	},
}

func (s *fakeStages) AnalyzePrompt(context.Context, string) (string, error) {
	if s.analysisErr != nil {
		return "", s.analysisErr
	}
	return "a landing page", nil
}

func (s *fakeStages) CreatePlan(context.Context, string, string) []string {
	return []string{"Layout", "Styles", "Deploy"}
}

func (s *fakeStages) SynthesizeProject(ctx context.Context, _, _ string, steps []string) (*types.Project, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.synthErr != nil {
		return nil, s.synthErr
	}
	p := *testProject
	p.Files = append([]types.File(nil), testProject.Files...)
	p.Steps = steps
	return &p, nil
}

func (s *fakeStages) EnhancePrompt(_ context.Context, prompt string) string {
	return prompt + " with a hero section"
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*users.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*users.User{}}
}

func (f *fakeUsers) Ensure(_ context.Context, uid, username, _ string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		u = &users.User{UID: uid, Username: username, Plan: users.PlanFree}
		f.users[uid] = u
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) ReservePrompt(_ context.Context, uid string, limit int) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, users.ErrNotFound
	}
	if u.PromptsUsed >= limit {
		cp := *u
		return &cp, users.ErrQuotaExceeded
	}
	u.PromptsUsed++
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) RefundPrompt(_ context.Context, uid string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[uid]
	if !ok {
		return nil, users.ErrNotFound
	}
	if u.PromptsUsed > 0 {
		u.PromptsUsed--
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) seed(u *users.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UID] = u
}

type testServer struct {
	router   *gin.Engine
	stages   *fakeStages
	users    *fakeUsers
	sessions *session.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stages := &fakeStages{}
	userStore := newFakeUsers()
	sessions := session.NewStore(stages, userStore, 16, time.Hour, nil, generation.WithProgressInterval(time.Hour))
	previews, err := preview.NewCache(0, 0)
	require.NoError(t, err)
	t.Cleanup(previews.Close)

	router := gin.New()
	RegisterRoutes(router, NewAPIHandler(stages, sessions, userStore, previews, nil))
	return &testServer{router: router, stages: stages, users: userStore, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set(headerUserID, uid)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (s *testServer) createSession(t *testing.T, uid string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/sessions", uid, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp SessionResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func (s *testServer) waitForRun(t *testing.T, id, uid string) {
	t.Helper()
	sess, err := s.sessions.Get(id, uid)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = sess.Orchestrator.Wait(ctx)
	require.NoError(t, ctx.Err())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPlan(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/plan", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/plan", "", PromptRequest{Prompt: "a bakery site"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp PlanResponse
	decode(t, w, &resp)
	require.Equal(t, "a landing page", resp.Analysis)
	require.Equal(t, []string{"Layout", "Styles", "Deploy"}, resp.Steps)

	s.stages.analysisErr = errors.New("groq unavailable")
	w = s.do(t, http.MethodPost, "/plan", "", PromptRequest{Prompt: "a bakery site"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Empty(t, resp.Analysis)
	require.Len(t, resp.Steps, 3)
}

func TestGenerate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/generate", "", GenerateRequest{Prompt: "a bakery", Steps: []string{"one"}})
	require.Equal(t, http.StatusOK, w.Code)
	var project types.Project
	decode(t, w, &project)
	require.Equal(t, "landing", project.ProjectName)
	require.Equal(t, []string{"one"}, project.Steps)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		raw    string
	}{
		{"parse", &ai.SynthesisParseError{Raw: "oops", Err: ai.ErrNoJSON}, http.StatusBadGateway, "oops"},
		{"empty", &ai.SynthesisEmptyResultError{}, http.StatusBadGateway, ""},
		{"provider transient", &ai.ProviderError{Provider: ai.ProviderOpenRouter, StatusCode: 503, Body: "busy"}, http.StatusServiceUnavailable, ""},
		{"provider permanent", &ai.ProviderError{Provider: ai.ProviderOpenRouter, StatusCode: 401, Body: "bad key"}, http.StatusBadGateway, ""},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.stages.synthErr = tt.err

			w := s.do(t, http.MethodPost, "/generate", "", GenerateRequest{Prompt: "a bakery"})
			require.Equal(t, tt.status, w.Code)

			var body map[string]any
			decode(t, w, &body)
			require.NotEmpty(t, body["error"])
			if tt.raw != "" {
				require.Equal(t, tt.raw, body["raw"])
			}
		})
	}
}

func TestEnhance(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/enhance", "", PromptRequest{Prompt: "a bakery"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp EnhanceResponse
	decode(t, w, &resp)
	require.Equal(t, "a bakery with a hero section", resp.Enhanced)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/me", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		User  users.User `json:"user"`
		Limit int        `json:"limit"`
	}
	decode(t, w, &resp)
	require.Equal(t, "alice", resp.User.UID)
	require.Equal(t, users.PlanFree, resp.User.Plan)
	require.Equal(t, 5, resp.Limit)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "alice")

	w := s.do(t, http.MethodGet, "/sessions/"+id+"/preview", "alice", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/sessions/"+id+"/generate", "alice", PromptRequest{Prompt: "a bakery"})
	require.Equal(t, http.StatusAccepted, w.Code)
	s.waitForRun(t, id, "alice")

	w = s.do(t, http.MethodGet, "/sessions/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	decode(t, w, &resp)
	require.Equal(t, generation.StateCompleted, resp.Snapshot.State)
	require.Equal(t, generation.LabelReady, resp.Snapshot.CurrentStep)
	require.Equal(t, "index.html", resp.Snapshot.SelectedFile)
	require.Equal(t, "landing", resp.Snapshot.Project.ProjectName)

	u, err := s.users.Ensure(context.Background(), "alice", "", "")
	require.NoError(t, err)
	require.Equal(t, 1, u.PromptsUsed)

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/preview", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, contentSecurityPolicy, w.Header().Get("Content-Security-Policy"))
	require.Contains(t, w.Body.String(), "<style>h1{color:red}\n</style>")

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/preview?edit=true", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "contenteditable")

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/tree", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"name":"css"`)

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/download", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="landing.html"`, w.Header().Get("Content-Disposition"))
	require.NotContains(t, w.Body.String(), "contenteditable")

	w = s.do(t, http.MethodPut, "/sessions/"+id+"/files", "alice", UpdateFileRequest{Path: "css/style.css", Content: "h1{color:blue}"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/preview", "alice", nil)
	require.Contains(t, w.Body.String(), "h1{color:blue}")
	require.NotContains(t, w.Body.String(), "h1{color:red}")

	w = s.do(t, http.MethodPut, "/sessions/"+id+"/files", "alice", UpdateFileRequest{Path: "missing.js"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/sessions/"+id, "alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/sessions/"+id, "alice", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionsAreScopedToTheirOwner(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "alice")

	w := s.do(t, http.MethodGet, "/sessions/"+id, "bob", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/sessions/"+id, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStartGenerationQuotaExceeded(t *testing.T) {
	s := newTestServer(t)
	s.users.seed(&users.User{UID: "alice", Plan: users.PlanFree, PromptsUsed: 5})
	id := s.createSession(t, "alice")

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/generate", "alice", PromptRequest{Prompt: "a bakery"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body map[string]any
	decode(t, w, &body)
	require.Equal(t, "free", body["plan"])
	require.EqualValues(t, 5, body["limit"])
	require.EqualValues(t, 5, body["used"])

	w = s.do(t, http.MethodGet, "/sessions/"+id, "alice", nil)
	var resp SessionResponse
	decode(t, w, &resp)
	require.Equal(t, generation.StateIdle, resp.Snapshot.State)
}

func TestStartGenerationConflictAndStop(t *testing.T) {
	s := newTestServer(t)
	s.stages.block = make(chan struct{})
	id := s.createSession(t, "alice")

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/generate", "alice", PromptRequest{Prompt: "a bakery"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(t, http.MethodPost, "/sessions/"+id+"/generate", "alice", PromptRequest{Prompt: "again"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/sessions/"+id+"/stop", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Stopped  bool                `json:"stopped"`
		Snapshot generation.Snapshot `json:"snapshot"`
	}
	decode(t, w, &body)
	require.True(t, body.Stopped)
	require.Equal(t, generation.StateCancelled, body.Snapshot.State)
	require.Equal(t, generation.LabelStopped, body.Snapshot.Notice)
	require.Equal(t, generation.NoStep, body.Snapshot.StepIndex)

	s.waitForRun(t, id, "alice")
	u, _ := s.users.Ensure(context.Background(), "alice", "", "")
	require.Equal(t, 0, u.PromptsUsed)
}

func TestStreamEventsEndsOnTerminalState(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "alice")

	w := s.do(t, http.MethodPost, "/sessions/"+id+"/generate", "alice", PromptRequest{Prompt: "a bakery"})
	require.Equal(t, http.StatusAccepted, w.Code)
	s.waitForRun(t, id, "alice")

	w = s.do(t, http.MethodGet, "/sessions/"+id+"/events", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	require.Equal(t, 1, strings.Count(w.Body.String(), "event:snapshot"))
	require.Contains(t, w.Body.String(), `"state":"completed"`)
}

func TestStartGenerationQuotaIsSharedAcrossSessions(t *testing.T) {
	s := newTestServer(t)
	s.stages.block = make(chan struct{})
	s.users.seed(&users.User{UID: "alice", Plan: users.PlanFree, PromptsUsed: 4})

	ids := []string{s.createSession(t, "alice"), s.createSession(t, "alice"), s.createSession(t, "alice")}

	codes := make(chan int, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w := s.do(t, http.MethodPost, "/sessions/"+id+"/generate", "alice", PromptRequest{Prompt: "a bakery"})
			codes <- w.Code
		}(id)
	}
	wg.Wait()
	close(codes)

	accepted := 0
	for code := range codes {
		if code == http.StatusAccepted {
			accepted++
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, code)
	}
	require.Equal(t, 1, accepted)

	close(s.stages.block)
	for _, id := range ids {
		s.waitForRun(t, id, "alice")
	}
	u, err := s.users.Ensure(context.Background(), "alice", "", "")
	require.NoError(t, err)
	require.Equal(t, 5, u.PromptsUsed)
}

func TestStreamEventsEndsWhenSessionDeleted(t *testing.T) {
	s := newTestServer(t)
	id := s.createSession(t, "alice")

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- s.do(t, http.MethodGet, "/sessions/"+id+"/events", "alice", nil)
	}()
	// let the stream subscribe before the session goes away
	time.Sleep(50 * time.Millisecond)

	w := s.do(t, http.MethodDelete, "/sessions/"+id, "alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	select {
	case w = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream still open after the session was deleted")
	}
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"state":"idle"`)
}
