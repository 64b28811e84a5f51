package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kennel-portal/agent"
	"kennel-portal/models"
)

type recordingRunner struct {
	calls        int
	conversation []*schema.Message
	caller       *agent.Caller
	ctxErr       error
	hasDeadline  bool
	reply        string
	err          error
}

func (r *recordingRunner) Handle(ctx context.Context, conversation []*schema.Message, caller *agent.Caller) (string, error) {
	r.calls++
	r.conversation = conversation
	r.caller = caller
	r.ctxErr = ctx.Err()
	_, r.hasDeadline = ctx.Deadline()
	return r.reply, r.err
}

func TestAgentService_Reply(t *testing.T) {
	runner := &recordingRunner{reply: "Hi!"}
	svc := NewAgentService(runner, time.Minute)
	caller := &agent.Caller{UserID: "user-1"}

	reply, err := svc.Reply(context.Background(), []byte(`{"messages":[{"role":"user","content":"hello"}]}`), caller)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", reply)
	require.Len(t, runner.conversation, 1)
	assert.Equal(t, "hello", runner.conversation[0].Content)
	assert.Same(t, caller, runner.caller)
	assert.True(t, runner.hasDeadline)
}

func TestAgentService_MalformedBodyIsEmptyConversation(t *testing.T) {
	runner := &recordingRunner{reply: "ok"}
	svc := NewAgentService(runner, 0)

	_, err := svc.Reply(context.Background(), []byte(`{"messages":"nope"}`), &agent.Caller{UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Empty(t, runner.conversation)
	assert.False(t, runner.hasDeadline)
}

func TestAgentService_NoCaller(t *testing.T) {
	runner := &recordingRunner{}
	_, err := NewAgentService(runner, time.Minute).Reply(context.Background(), nil, nil)
	assert.ErrorIs(t, err, agent.ErrUnauthorized)
	assert.Equal(t, 0, runner.calls)
}

func TestAgentService_IgnoresClientCancellation(t *testing.T) {
	runner := &recordingRunner{reply: "ok"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAgentService(runner, time.Minute).Reply(ctx, []byte(`{"messages":[]}`), &agent.Caller{UserID: "u"})
	require.NoError(t, err)
	assert.NoError(t, runner.ctxErr)
}

type fakePortalStore struct {
	puppies    []models.Puppy
	err        error
	filter     models.PuppyFilter
	userID     string
	limit      int
	apps       []models.Application
	messages   []models.BreederMessage
	queryCount int
}

func (f *fakePortalStore) ListPuppies(_ context.Context, filter models.PuppyFilter) ([]models.Puppy, error) {
	f.queryCount++
	f.filter = filter
	return f.puppies, f.err
}

func (f *fakePortalStore) ListApplications(_ context.Context, userID string, limit int) ([]models.Application, error) {
	f.queryCount++
	f.userID, f.limit = userID, limit
	return f.apps, f.err
}

func (f *fakePortalStore) ListMessages(_ context.Context, userID string, limit int) ([]models.BreederMessage, error) {
	f.queryCount++
	f.userID, f.limit = userID, limit
	return f.messages, f.err
}

func TestPortalService_ListPuppies(t *testing.T) {
	tests := []struct {
		name       string
		query      PuppyQuery
		wantFilter models.PuppyFilter
		wantCode   string
	}{
		{name: "defaults", query: PuppyQuery{}, wantFilter: models.PuppyFilter{Status: "READY", Limit: 12}, wantCode: models.CodeNoError},
		{name: "clamped", query: PuppyQuery{Limit: "500", Status: "available"}, wantFilter: models.PuppyFilter{Status: "AVAILABLE", Limit: 50}, wantCode: models.CodeNoError},
		{name: "all statuses", query: PuppyQuery{Status: "all", Limit: "0"}, wantFilter: models.PuppyFilter{Status: "", Limit: 1}, wantCode: models.CodeNoError},
		{name: "bad status", query: PuppyQuery{Status: "adopted"}, wantCode: models.CodeInvalidRequest},
		{name: "bad limit", query: PuppyQuery{Limit: "many"}, wantCode: models.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakePortalStore{puppies: []models.Puppy{{ID: "p1"}}}
			resp := NewPortalService(store).ListPuppies(context.Background(), tt.query)
			assert.Equal(t, tt.wantCode, resp.Error)
			if tt.wantCode == models.CodeNoError {
				assert.Equal(t, tt.wantFilter, store.filter)
			} else {
				assert.Equal(t, 0, store.queryCount)
			}
		})
	}
}

func TestPortalService_StoreFailureIsSanitized(t *testing.T) {
	store := &fakePortalStore{err: errors.New("dial tcp 10.0.0.5:3306: connection refused")}
	resp := NewPortalService(store).ListLitters(context.Background())
	assert.Equal(t, models.CodeOperationFailed, resp.Error)
	assert.Equal(t, "list litters failed", resp.ErrorMessage)
}

func TestPortalService_ListLitters(t *testing.T) {
	store := &fakePortalStore{puppies: []models.Puppy{
		{ID: "p1", Name: "Biscuit", LitterID: "l1", LitterName: "Autumn"},
		{ID: "p2", Name: "Stray"},
	}}
	resp := NewPortalService(store).ListLitters(context.Background())
	require.Equal(t, models.CodeNoError, resp.Error)
	assert.Equal(t, models.PuppyFilter{}, store.filter)
	litters := resp.Data.([]models.Litter)
	require.Len(t, litters, 2)
	assert.Equal(t, "Autumn", litters[0].Name)
}

func TestPortalService_CallerScoped(t *testing.T) {
	store := &fakePortalStore{}
	svc := NewPortalService(store)

	assert.Equal(t, models.CodeUnauthorized, svc.ListApplications(context.Background(), nil).Error)
	assert.Equal(t, models.CodeUnauthorized, svc.ListMessages(context.Background(), nil).Error)
	assert.Equal(t, 0, store.queryCount)

	resp := svc.ListApplications(context.Background(), &agent.Caller{UserID: "user-1"})
	assert.Equal(t, models.CodeNoError, resp.Error)
	assert.Equal(t, "user-1", store.userID)
	assert.Equal(t, applicationPageSize, store.limit)

	resp = svc.ListMessages(context.Background(), &agent.Caller{UserID: "user-2"})
	assert.Equal(t, models.CodeNoError, resp.Error)
	assert.Equal(t, "user-2", store.userID)
	assert.Equal(t, messagePageSize, store.limit)
}
