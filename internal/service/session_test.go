package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/inference"
	"github.com/Harshitk-cp/expertd/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockKnowledgeBaseStore mocks the KnowledgeBaseStore interface.
type MockKnowledgeBaseStore struct {
	mock.Mock
}

func (m *MockKnowledgeBaseStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	args := m.Called(ctx, kb)
	return args.Error(0)
}

func (m *MockKnowledgeBaseStore) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

func (m *MockKnowledgeBaseStore) List(ctx context.Context) ([]domain.KnowledgeBaseSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnowledgeBaseSummary), args.Error(1)
}

func (m *MockKnowledgeBaseStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockKnowledgeBaseStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func twoWayKB() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Name: "two-way",
		Hypotheses: map[string]domain.HypothesisSpec{
			"A": {PH: 0.5, Triplets: map[string]domain.Triplet{"e1": {PPlus: 0.9, PMinus: 0.1}}},
			"B": {PH: 0.5, Triplets: map[string]domain.Triplet{"e1": {PPlus: 0.1, PMinus: 0.9}}},
		},
		Evidences: map[string]domain.EvidenceSpec{
			"e1": {Question: "Does it hum?"},
		},
	}
}

func carKB() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Name: "car",
		Hypotheses: map[string]domain.HypothesisSpec{
			"battery": {PH: 0.3, Triplets: map[string]domain.Triplet{
				"1": {PPlus: 0.9, PMinus: 0.2},
				"2": {PPlus: 0.7, PMinus: 0.4},
				"3": {PPlus: 0.1, PMinus: 0.5},
			}},
			"starter": {PH: 0.2, Triplets: map[string]domain.Triplet{
				"1": {PPlus: 0.3, PMinus: 0.4},
				"3": {PPlus: 0.8, PMinus: 0.3},
			}},
			"fuel": {PH: 0.4, Triplets: map[string]domain.Triplet{
				"2": {PPlus: 0.2, PMinus: 0.6},
				"4": {PPlus: 0.95, PMinus: 0.1},
			}},
		},
		Evidences: map[string]domain.EvidenceSpec{
			"1": {Question: "Are the dashboard lights dim?"},
			"2": {Question: "Does the engine crank?"},
			"3": {Question: "Do you hear a click?"},
			"4": {Question: "Is the fuel gauge at empty?"},
		},
	}
}

func newSessionService(t *testing.T, kbs ...*domain.KnowledgeBase) (*SessionService, *MockKnowledgeBaseStore) {
	t.Helper()
	kbStore := new(MockKnowledgeBaseStore)
	for _, kb := range kbs {
		kbStore.On("GetByName", mock.Anything, kb.Name).Return(kb, nil)
	}
	kbStore.On("GetByName", mock.Anything, mock.Anything).Return(nil, store.ErrNotFound).Maybe()
	return NewSessionService(store.NewMemorySessionStore(), kbStore, zap.NewNop()), kbStore
}

func TestSessionService_Start(t *testing.T) {
	svc, _ := newSessionService(t, twoWayKB())

	sess, err := svc.Start(context.Background(), "two-way")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, domain.SessionActive, sess.Status)
	require.NotNil(t, sess.Pending)
	assert.Equal(t, "e1", sess.Pending.EvidenceID)
	assert.Equal(t, "Does it hum?", sess.Pending.Text)
	assert.Greater(t, sess.Pending.Cost, 0.0)
	assert.Len(t, sess.Beliefs, 2)
	assert.Empty(t, sess.Winners)
	assert.Equal(t, 1, sess.Remaining)
}

func TestSessionService_StartUnknownKnowledgeBase(t *testing.T) {
	svc, _ := newSessionService(t)

	_, err := svc.Start(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestSessionService_AnswerDecides(t *testing.T) {
	svc, _ := newSessionService(t, twoWayKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "two-way")
	require.NoError(t, err)

	sess, err = svc.Answer(ctx, sess.ID, "", 5)

	require.NoError(t, err)
	assert.Equal(t, domain.SessionDecided, sess.Status)
	assert.Nil(t, sess.Pending)
	assert.Equal(t, []string{"A"}, sess.Winners)
	require.Len(t, sess.Answers, 1)
	assert.Equal(t, "e1", sess.Answers[0].EvidenceID)
	assert.Equal(t, "Does it hum?", sess.Answers[0].Question)
	assert.Equal(t, 5, sess.Answers[0].Response)
	assert.Equal(t, "A", sess.Beliefs[0].Hypothesis)
	assert.InDelta(t, 0.9, sess.Beliefs[0].Probability, 1e-9)

	_, err = svc.Answer(ctx, sess.ID, "", 1)
	assert.ErrorIs(t, err, ErrSessionFinished)
}

func TestSessionService_AnswerErrors(t *testing.T) {
	svc, _ := newSessionService(t, twoWayKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "two-way")
	require.NoError(t, err)

	_, err = svc.Answer(ctx, sess.ID, "e1", 7)
	assert.ErrorIs(t, err, inference.ErrInvalidAnswer)

	_, err = svc.Answer(ctx, sess.ID, "e42", 1)
	assert.ErrorIs(t, err, inference.ErrUnknownEvidence)

	_, err = svc.Answer(ctx, uuid.New(), "e1", 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Answers)
}

func tieKB() *domain.KnowledgeBase {
	return &domain.KnowledgeBase{
		Name: "tie",
		Hypotheses: map[string]domain.HypothesisSpec{
			"A": {PH: 0.5, Triplets: map[string]domain.Triplet{"e1": {PPlus: 0.7, PMinus: 0.3}}},
			"B": {PH: 0.5, Triplets: map[string]domain.Triplet{"e1": {PPlus: 0.7, PMinus: 0.3}}},
		},
		Evidences: map[string]domain.EvidenceSpec{
			"e1": {Question: "Is it plugged in?"},
		},
	}
}

func TestSessionService_AnswerNotPending(t *testing.T) {
	svc, _ := newSessionService(t, carKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "car")
	require.NoError(t, err)
	require.NotNil(t, sess.Pending)

	var other string
	for id := range carKB().Evidences {
		if id != sess.Pending.EvidenceID {
			other = id
			break
		}
	}

	_, err = svc.Answer(ctx, sess.ID, other, 3)
	assert.ErrorIs(t, err, ErrNotPending)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Answers)

	_, err = svc.Answer(ctx, sess.ID, sess.Pending.EvidenceID, 3)
	assert.NoError(t, err)
}

func TestSessionService_ExhaustedWithoutDecision(t *testing.T) {
	svc, _ := newSessionService(t, tieKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "tie")
	require.NoError(t, err)

	sess, err = svc.Answer(ctx, sess.ID, "", 0)

	require.NoError(t, err)
	assert.Equal(t, domain.SessionExhausted, sess.Status)
	assert.Equal(t, []string{"A", "B"}, sess.Winners)
	assert.Nil(t, sess.Pending)
	assert.Equal(t, 0, sess.Remaining)
	for _, b := range sess.Beliefs {
		assert.Equal(t, b.Probability, b.Min)
		assert.Equal(t, b.Probability, b.Max)
	}

	_, err = svc.Answer(ctx, sess.ID, "", 1)
	assert.ErrorIs(t, err, ErrSessionFinished)
}

func TestSessionService_StartAsksBeforeDeciding(t *testing.T) {
	kb := &domain.KnowledgeBase{
		Name: "lopsided",
		Hypotheses: map[string]domain.HypothesisSpec{
			"A": {PH: 0.9, Triplets: map[string]domain.Triplet{}},
			"B": {PH: 0.1, Triplets: map[string]domain.Triplet{"e1": {PPlus: 0.6, PMinus: 0.4}}},
		},
		Evidences: map[string]domain.EvidenceSpec{
			"e1": {Question: "Is it warm?"},
		},
	}
	svc, _ := newSessionService(t, kb)
	ctx := context.Background()

	eng, err := inference.New(kb)
	require.NoError(t, err)
	require.True(t, eng.Outcome().Decided)

	sess, err := svc.Start(ctx, "lopsided")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, sess.Status)
	require.NotNil(t, sess.Pending)
	assert.Equal(t, "e1", sess.Pending.EvidenceID)
	assert.Empty(t, sess.Winners)

	sess, err = svc.Answer(ctx, sess.ID, "", 5)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDecided, sess.Status)
	assert.Equal(t, []string{"A"}, sess.Winners)
}

func TestSessionService_Undo(t *testing.T) {
	svc, _ := newSessionService(t, twoWayKB())
	ctx := context.Background()
	started, err := svc.Start(ctx, "two-way")
	require.NoError(t, err)

	_, err = svc.Undo(ctx, started.ID)
	assert.ErrorIs(t, err, ErrNothingToUndo)

	_, err = svc.Answer(ctx, started.ID, "e1", -4)
	require.NoError(t, err)

	sess, err := svc.Undo(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, started.Status, sess.Status)
	assert.Equal(t, started.Pending, sess.Pending)
	assert.Equal(t, started.Beliefs, sess.Beliefs)
	assert.Equal(t, started.Remaining, sess.Remaining)
	assert.Empty(t, sess.Answers)
}

func TestSessionService_ReplayMatchesEngine(t *testing.T) {
	svc, _ := newSessionService(t, carKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "car")
	require.NoError(t, err)

	eng, err := inference.New(carKB())
	require.NoError(t, err)

	responses := []int{3, -2}
	for _, r := range responses {
		require.NotNil(t, sess.Pending)
		id := sess.Pending.EvidenceID
		sess, err = svc.Answer(ctx, sess.ID, id, r)
		require.NoError(t, err)
		require.NoError(t, eng.ApplyAnswer(id, r))
	}
	require.NoError(t, eng.RecomputeBounds())

	assert.Equal(t, eng.RankedBeliefs(), sess.Beliefs)
	assert.Equal(t, eng.Remaining(), sess.Remaining)
}

func TestSessionService_RunsToCompletion(t *testing.T) {
	svc, _ := newSessionService(t, carKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "car")
	require.NoError(t, err)

	for i := 0; i < 10 && !sess.Finished(); i++ {
		require.NotNil(t, sess.Pending)
		sess, err = svc.Answer(ctx, sess.ID, "", 5)
		require.NoError(t, err)
	}

	assert.True(t, sess.Finished())
	assert.NotEmpty(t, sess.Winners)
	for _, b := range sess.Beliefs {
		assert.LessOrEqual(t, b.Min, b.Probability)
		assert.LessOrEqual(t, b.Probability, b.Max)
	}
}

func TestSessionService_Delete(t *testing.T) {
	svc, _ := newSessionService(t, twoWayKB())
	ctx := context.Background()
	sess, err := svc.Start(ctx, "two-way")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sess.ID))
	assert.ErrorIs(t, svc.Delete(ctx, sess.ID), ErrSessionNotFound)
	_, err = svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExpirerService_RunOnce(t *testing.T) {
	sessions := store.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, sessions.Create(ctx, &domain.Session{KnowledgeBase: "car"}))

	keep := NewExpirerService(sessions, time.Hour, zap.NewNop())
	assert.Equal(t, int64(0), keep.RunOnce(ctx))

	time.Sleep(2 * time.Millisecond)
	drop := NewExpirerService(sessions, time.Millisecond, zap.NewNop())
	assert.Equal(t, int64(1), drop.RunOnce(ctx))
}

func TestExpirerService_StartStop(t *testing.T) {
	sessions := store.NewMemorySessionStore()
	ctx := context.Background()
	sess := &domain.Session{}
	require.NoError(t, sessions.Create(ctx, sess))

	exp := NewExpirerService(sessions, time.Millisecond, zap.NewNop())
	exp.SetInterval(5 * time.Millisecond)
	exp.Start()
	defer exp.Stop()

	assert.Eventually(t, func() bool {
		_, err := sessions.GetByID(ctx, sess.ID)
		return errors.Is(err, store.ErrNotFound)
	}, time.Second, 10*time.Millisecond)
}
