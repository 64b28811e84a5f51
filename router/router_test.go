package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kennel-portal/agent"
	"kennel-portal/auth"
	"kennel-portal/completion"
	"kennel-portal/config"
	"kennel-portal/handler"
	"kennel-portal/models"
	"kennel-portal/observability"
	"kennel-portal/service"
)

const jwtSecret = "router-test-secret-router-test-secret"

type memoryStore struct {
	mu       sync.Mutex
	puppies  []models.Puppy
	apps     []models.Application
	messages []models.BreederMessage
	calls    int
}

func (m *memoryStore) ListPuppies(_ context.Context, filter models.PuppyFilter) ([]models.Puppy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := []models.Puppy{}
	for _, p := range m.puppies {
		if filter.Status == "" || p.Status == filter.Status {
			out = append(out, p)
		}
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) ListApplications(_ context.Context, userID string, limit int) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := []models.Application{}
	for _, a := range m.apps {
		if a.UserID == userID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) InsertMessage(_ context.Context, msg models.BreederMessage) (models.BreederMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memoryStore) ListMessages(_ context.Context, userID string, limit int) ([]models.BreederMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := []models.BreederMessage{}
	for _, msg := range m.messages {
		if msg.UserID == userID && len(out) < limit {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memoryStore) PaymentURL() string { return "/payments" }

func (m *memoryStore) storeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// upstream is a scripted completion service.
type upstream struct {
	mu       sync.Mutex
	replies  []func(w http.ResponseWriter)
	requests []map[string]any
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	i := len(u.requests)
	u.requests = append(u.requests, body)

	if i >= len(u.replies) {
		http.Error(w, "unexpected call", http.StatusTeapot)
		return
	}
	u.replies[i](w)
}

func (u *upstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func toolCallReply(name, args string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{
					"role":    "assistant",
					"content": nil,
					"tool_calls": []any{map[string]any{
						"id":       "call_abc",
						"type":     "function",
						"function": map[string]any{"name": name, "arguments": args},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}
}

func textReply(text string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
		})
	}
}

func failReply(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newServer(t *testing.T, up *upstream, store *memoryStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	client := completion.NewClient(config.LLMConfig{
		BaseURL: srv.URL,
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	orchestrator := agent.New(client, store)

	r := gin.New()
	r.Use(observability.RequestLogger())
	RegisterRoutes(r, Deps{
		Agent:    handler.NewAgentHandler(service.NewAgentService(orchestrator, 10*time.Second)),
		Portal:   handler.NewPortalHandler(service.NewPortalService(store)),
		Resolver: auth.NewResolver(config.JWTConfig{Secret: jwtSecret}),
		ReadyChecks: map[string]observability.HealthCheckFunc{
			"completion": client.Ping,
		},
	})
	return r
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: userID + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func postAgent(r http.Handler, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAgent_ListPuppies(t *testing.T) {
	up := &upstream{replies: []func(http.ResponseWriter){
		toolCallReply("list_available_puppies", "{}"),
		textReply("Biscuit, Maple and Juniper are ready to go home."),
	}}
	store := &memoryStore{puppies: []models.Puppy{
		{ID: "p1", Name: "Biscuit", Status: "READY"},
		{ID: "p2", Name: "Maple", Status: "READY"},
		{ID: "p3", Name: "Juniper", Status: "READY"},
		{ID: "p4", Name: "Clover", Status: "SOLD"},
	}}
	r := newServer(t, up, store)

	w := postAgent(r, bearer(t, "user-1"), `{"messages":[{"role":"user","content":"show me available puppies"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"reply":"Biscuit, Maple and Juniper are ready to go home."}`, w.Body.String())

	require.Equal(t, 2, up.count())
	first, second := up.requests[0], up.requests[1]
	assert.Equal(t, "auto", first["tool_choice"])
	assert.Len(t, first["tools"], 4)
	assert.Equal(t, "none", second["tool_choice"])

	msgs := second["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	assert.Equal(t, "tool", last["role"])
	assert.Equal(t, "call_abc", last["tool_call_id"])

	var env struct {
		OK   bool `json:"ok"`
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(last["content"].(string)), &env))
	assert.True(t, env.OK)
	assert.Equal(t, 3, env.Data.Count)
}

func TestAgent_SendMessage(t *testing.T) {
	up := &upstream{replies: []func(http.ResponseWriter){
		toolCallReply("send_message_to_breeder", `{"text":"Can I visit this weekend?"}`),
		textReply("I've sent your message to the breeder."),
	}}
	store := &memoryStore{}
	r := newServer(t, up, store)

	w := postAgent(r, bearer(t, "user-7"), `{"messages":[{"role":"user","content":"Ask the breeder: Can I visit this weekend?"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sent your message")

	require.Len(t, store.messages, 1)
	assert.Equal(t, "user-7", store.messages[0].UserID)
	assert.Equal(t, "Can I visit this weekend?", store.messages[0].Body)
	assert.Equal(t, models.SenderBuyer, store.messages[0].Sender)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	req.Header.Set("Authorization", bearer(t, "user-7"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Can I visit this weekend?")
}

func TestAgent_Unauthorized(t *testing.T) {
	up := &upstream{}
	store := &memoryStore{}
	r := newServer(t, up, store)

	for _, header := range []string{"", "Bearer forged.token.value", "Basic abc"} {
		w := postAgent(r, header, `{"messages":[{"role":"user","content":"hi"}]}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	}
	assert.Equal(t, 0, up.count())
	assert.Equal(t, 0, store.storeCalls())
}

func TestAgent_UpstreamFailure(t *testing.T) {
	up := &upstream{replies: []func(http.ResponseWriter){
		failReply(http.StatusInternalServerError, `{"error":{"message":"boom"}}`),
	}}
	store := &memoryStore{}
	r := newServer(t, up, store)

	w := postAgent(r, bearer(t, "user-1"), `{"messages":[{"role":"user","content":"show me puppies"}]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "reply")
	assert.Equal(t, 1, up.count())
	assert.Equal(t, 0, store.storeCalls())
}

func TestAgent_MalformedBodyStillAnswers(t *testing.T) {
	up := &upstream{replies: []func(http.ResponseWriter){
		textReply(""),
		textReply(""),
	}}
	r := newServer(t, up, &memoryStore{})

	w := postAgent(r, bearer(t, "user-1"), `{"messages":"not a list"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":"Done."}`, w.Body.String())

	msgs := up.requests[0]["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestPortalRoutes(t *testing.T) {
	store := &memoryStore{
		puppies: []models.Puppy{
			{ID: "p1", Name: "Biscuit", Status: "READY", LitterID: "l1", LitterName: "Autumn"},
			{ID: "p2", Name: "Clover", Status: "SOLD", LitterID: "l1", LitterName: "Autumn"},
		},
		apps: []models.Application{{ID: "a1", UserID: "user-1", Status: "APPROVED"}},
	}
	r := newServer(t, &upstream{}, store)

	get := func(path, auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/api/puppies", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data  []models.Puppy `json:"data"`
		Error string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.CodeNoError, resp.Error)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Biscuit", resp.Data[0].Name)

	assert.Equal(t, http.StatusBadRequest, get("/api/puppies?status=adopted", "").Code)

	w = get("/api/litters", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Autumn"`)

	assert.Equal(t, http.StatusUnauthorized, get("/api/applications", "").Code)
	w = get("/api/applications", bearer(t, "user-1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "APPROVED")

	w = get("/api/applications", bearer(t, "user-2"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "APPROVED")

	assert.Equal(t, http.StatusOK, get("/health", "").Code)
	assert.Equal(t, http.StatusOK, get("/metrics", "").Code)
}
