package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/trivialabs/trivia-platform/internal/model"
)

// memoryStore keeps per-subject question pools sorted by random key and
// serves the same two scan windows the SQL repository does.
type memoryStore struct {
	pools   map[uuid.UUID][]model.Question
	failFor map[uuid.UUID]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		pools:   map[uuid.UUID][]model.Question{},
		failFor: map[uuid.UUID]error{},
	}
}

func (m *memoryStore) addPool(subjectID uuid.UUID, size int) {
	for i := 0; i < size; i++ {
		m.pools[subjectID] = append(m.pools[subjectID], model.Question{
			ID:        uuid.New(),
			SubjectID: subjectID,
			Text:      model.MultilingualText{EN: fmt.Sprintf("q%d", i)},
			Options: []model.QuestionOption{
				{Text: model.MultilingualText{EN: "a"}},
				{Text: model.MultilingualText{EN: "b"}},
			},
			RandomKey: float64(i) / float64(size),
		})
	}
}

func (m *memoryStore) pool(subjectID *uuid.UUID) []model.Question {
	if subjectID != nil {
		return m.pools[*subjectID]
	}
	var all []model.Question
	for _, qs := range m.pools {
		all = append(all, qs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RandomKey < all[j].RandomKey })
	return all
}

func (m *memoryStore) window(subjectID *uuid.UUID, limit int, keep func(float64) bool) ([]model.Question, error) {
	if subjectID != nil {
		if err := m.failFor[*subjectID]; err != nil {
			return nil, err
		}
	}
	var out []model.Question
	for _, q := range m.pool(subjectID) {
		if keep(q.RandomKey) {
			out = append(out, q)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memoryStore) SampleFromPivot(_ context.Context, subjectID *uuid.UUID, pivot float64, limit int) ([]model.Question, error) {
	return m.window(subjectID, limit, func(k float64) bool { return k >= pivot })
}

func (m *memoryStore) SampleBelowPivot(_ context.Context, subjectID *uuid.UUID, pivot float64, limit int) ([]model.Question, error) {
	return m.window(subjectID, limit, func(k float64) bool { return k < pivot })
}

func (m *memoryStore) ListBySubject(_ context.Context, subjectID *uuid.UUID) ([]model.Question, error) {
	return m.pool(subjectID), nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (model.Question, error) {
	for _, qs := range m.pools {
		for _, q := range qs {
			if q.ID == id {
				return q, nil
			}
		}
	}
	return model.Question{}, ErrNotFound
}

func (m *memoryStore) Insert(_ context.Context, q model.Question) (model.Question, error) {
	q.ID = uuid.New()
	m.pools[q.SubjectID] = append(m.pools[q.SubjectID], q)
	return q, nil
}

func (m *memoryStore) Update(_ context.Context, q model.Question) (model.Question, error) {
	return q, nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, zerolog.New(io.Discard), ServiceOptions{})
}

func assertUniqueIDs(t *testing.T, qs []model.Question) {
	t.Helper()
	seen := map[uuid.UUID]bool{}
	for _, q := range qs {
		assert.False(t, seen[q.ID], "duplicate question %s in sample", q.ID)
		seen[q.ID] = true
	}
}

func TestSampleForGameSingleSubject(t *testing.T) {
	store := newMemoryStore()
	subjectID := uuid.New()
	store.addPool(subjectID, 40)
	svc := newTestService(store)

	qs, err := svc.SampleForGame(context.Background(), subjectID.String(), 10)
	assert.NoError(t, err)
	assert.Len(t, qs, 10)
	assertUniqueIDs(t, qs)
}

func TestSampleForGameReturnsMinOfPoolAndLimit(t *testing.T) {
	store := newMemoryStore()
	subjectID := uuid.New()
	store.addPool(subjectID, 4)
	svc := newTestService(store)

	// Short pool: not an error, just fewer questions.
	qs, err := svc.SampleForGame(context.Background(), subjectID.String(), 10)
	assert.NoError(t, err)
	assert.Len(t, qs, 4)
	assertUniqueIDs(t, qs)
}

func TestSampleForGameWrapsAroundPivot(t *testing.T) {
	store := newMemoryStore()
	subjectID := uuid.New()
	store.addPool(subjectID, 20)
	svc := newTestService(store)

	// With a pivot near the top of the key space the first window holds only
	// two questions; the rest must come from the wrap-around scan.
	svc.pivot = func() float64 { return 0.9 }

	qs, err := svc.SampleForGame(context.Background(), subjectID.String(), 10)
	assert.NoError(t, err)
	assert.Len(t, qs, 10)
	assertUniqueIDs(t, qs)
}

func TestSampleForGameDefaultsAndCaps(t *testing.T) {
	store := newMemoryStore()
	subjectID := uuid.New()
	store.addPool(subjectID, 200)
	svc := newTestService(store)

	qs, err := svc.SampleForGame(context.Background(), subjectID.String(), 0)
	assert.NoError(t, err)
	assert.Len(t, qs, 10, "limit defaults to 10")

	qs, err = svc.SampleForGame(context.Background(), subjectID.String(), 500)
	assert.NoError(t, err)
	assert.Len(t, qs, MaxSampleSize, "limit capped at 50")
}

func TestSampleForGameWholePoolWhenSubjectEmpty(t *testing.T) {
	store := newMemoryStore()
	store.addPool(uuid.New(), 10)
	store.addPool(uuid.New(), 10)
	svc := newTestService(store)

	qs, err := svc.SampleForGame(context.Background(), "", 15)
	assert.NoError(t, err)
	assert.Len(t, qs, 15)
	assertUniqueIDs(t, qs)
}

func TestSampleForGameFiltersMalformedIDs(t *testing.T) {
	store := newMemoryStore()
	subjectID := uuid.New()
	store.addPool(subjectID, 20)
	svc := newTestService(store)

	param := strings.Join([]string{"favorites-mix", subjectID.String(), "not-a-uuid"}, ",")
	qs, err := svc.SampleForGame(context.Background(), param, 10)
	assert.NoError(t, err)
	assert.Len(t, qs, 10)
	for _, q := range qs {
		assert.Equal(t, subjectID, q.SubjectID)
	}
}

func TestSampleForGameNoValidIDs(t *testing.T) {
	store := newMemoryStore()
	store.addPool(uuid.New(), 20)
	svc := newTestService(store)

	qs, err := svc.SampleForGame(context.Background(), "favorites-mix,also-bad", 10)
	assert.NoError(t, err)
	assert.Empty(t, qs)
}

func TestSampleForGameFavoritesMix(t *testing.T) {
	store := newMemoryStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	store.addPool(a, 30)
	store.addPool(b, 30)
	store.addPool(c, 30)
	svc := newTestService(store)

	param := strings.Join([]string{a.String(), b.String(), c.String()}, ",")
	qs, err := svc.SampleForGame(context.Background(), param, 10)
	assert.NoError(t, err)
	assert.Len(t, qs, 10, "over-fetch from ceiling split is truncated to limit")
	assertUniqueIDs(t, qs)

	// ceil(10/3) = 4 per subject, so no subject can dominate the sample.
	counts := map[uuid.UUID]int{}
	for _, q := range qs {
		counts[q.SubjectID]++
	}
	for id, n := range counts {
		assert.LessOrEqual(t, n, 4, "subject %s over-represented", id)
	}
	assert.GreaterOrEqual(t, len(counts), 2, "mix should span subjects")
}

// The per-subject batches are shuffled together, so a mixed sample must not
// come back grouped by subject. With a fixed pivot each trial draws the same
// 5+5 questions; only the shuffle varies. Unshuffled concatenation would put
// one subject's full batch in the first half on every trial, so the observed
// share of subject a in the first half would pin to 0 or 1 instead of
// hovering around 0.5.
func TestSampleForGameMixOrderingInterleaved(t *testing.T) {
	store := newMemoryStore()
	a, b := uuid.New(), uuid.New()
	store.addPool(a, 30)
	store.addPool(b, 30)
	svc := newTestService(store)
	svc.pivot = func() float64 { return 0 }

	param := a.String() + "," + b.String()
	const trials = 200

	firstHalfA := 0
	for i := 0; i < trials; i++ {
		qs, err := svc.SampleForGame(context.Background(), param, 10)
		assert.NoError(t, err)
		assert.Len(t, qs, 10)
		for _, q := range qs[:5] {
			if q.SubjectID == a {
				firstHalfA++
			}
		}
	}

	share := float64(firstHalfA) / float64(trials*5)
	assert.Greater(t, share, 0.3, "subject a pushed out of the first half")
	assert.Less(t, share, 0.7, "subject a dominates the first half")
}

func TestSampleForGameMixWithShortPool(t *testing.T) {
	store := newMemoryStore()
	a, b := uuid.New(), uuid.New()
	store.addPool(a, 30)
	store.addPool(b, 2)
	svc := newTestService(store)

	param := a.String() + "," + b.String()
	qs, err := svc.SampleForGame(context.Background(), param, 10)
	assert.NoError(t, err)
	// 5 from a, 2 from b; the short branch shrinks the total.
	assert.Len(t, qs, 7)
	assertUniqueIDs(t, qs)
}

func TestSampleForGameFailedBranchFailsSample(t *testing.T) {
	store := newMemoryStore()
	a, b := uuid.New(), uuid.New()
	store.addPool(a, 30)
	store.addPool(b, 30)
	store.failFor[b] = errors.New("connection reset")
	svc := newTestService(store)

	param := a.String() + "," + b.String()
	qs, err := svc.SampleForGame(context.Background(), param, 10)
	assert.Error(t, err)
	assert.Nil(t, qs, "no partial mix on branch failure")
}

func TestCreateAssignsRandomKey(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	created, err := svc.Create(context.Background(), model.Question{
		SubjectID: uuid.New(),
		Text:      model.MultilingualText{EN: "q", HE: "ש"},
		Options: []model.QuestionOption{
			{Text: model.MultilingualText{EN: "a"}},
			{Text: model.MultilingualText{EN: "b"}},
		},
		CorrectAnswerIndex: 1,
	})
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, created.RandomKey, 0.0)
	assert.Less(t, created.RandomKey, 1.0)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryStore())

	_, err := svc.Create(context.Background(), model.Question{
		SubjectID: uuid.New(),
		Text:      model.MultilingualText{EN: "q"},
		Options: []model.QuestionOption{
			{Text: model.MultilingualText{EN: "a"}},
			{Text: model.MultilingualText{EN: "b"}},
		},
		CorrectAnswerIndex: 2,
	})
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	_, err = svc.Create(context.Background(), model.Question{
		SubjectID: uuid.New(),
		Text:      model.MultilingualText{EN: "q"},
		Options:   []model.QuestionOption{{Text: model.MultilingualText{EN: "a"}}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}
