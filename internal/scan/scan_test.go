package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortbird/pathweaver/internal/types"
)

type fakeSource struct {
	mu        sync.Mutex
	lessons   map[string][]types.Lesson
	errs      map[string]error
	delays    map[string]time.Duration
	calls     []string
	published []bool
}

func (f *fakeSource) ListLessons(_ context.Context, questID string, includeUnpublished bool) ([]types.Lesson, error) {
	if d := f.delays[questID]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	f.calls = append(f.calls, questID)
	f.published = append(f.published, includeUnpublished)
	f.mu.Unlock()
	if err := f.errs[questID]; err != nil {
		return nil, err
	}
	return f.lessons[questID], nil
}

func quests(ids ...string) []types.QuestRef {
	refs := make([]types.QuestRef, len(ids))
	for i, id := range ids {
		refs[i] = types.QuestRef{ID: id, Title: "Quest " + id}
	}
	return refs
}

func lessonIDs(lessons []types.Lesson) []string {
	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	return ids
}

func TestScan_FiltersLinkedLessons(t *testing.T) {
	src := &fakeSource{lessons: map[string][]types.Lesson{
		"q1": {
			{ID: "l1"},
			{ID: "l2", LinkedTaskIDs: []string{"t9"}},
			{ID: "l3", LinkedTaskIDs: []string{}},
		},
	}}

	lessons := NewScanner(src, true, nil).Eligible(context.Background(), quests("q1"))

	assert.Equal(t, []string{"l1", "l3"}, lessonIDs(lessons))
	assert.Equal(t, "q1", lessons[0].QuestID)
	assert.Equal(t, "Quest q1", lessons[0].QuestTitle)
	assert.Equal(t, []bool{true}, src.published)
}

func TestScan_FailureIsolatedPerQuest(t *testing.T) {
	boom := errors.New("connection reset")
	src := &fakeSource{
		lessons: map[string][]types.Lesson{
			"q1": {{ID: "a"}},
			"q3": {{ID: "c1"}, {ID: "c2"}},
		},
		errs: map[string]error{"q2": boom},
	}

	results := NewScanner(src, false, nil).Scan(context.Background(), quests("q1", "q2", "q3"))

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, boom)

	var discoveryErr *DiscoveryError
	require.ErrorAs(t, results[1].Err, &discoveryErr)
	assert.Equal(t, "q2", discoveryErr.QuestID)

	assert.Equal(t, []string{"a", "c1", "c2"}, lessonIDs(Flatten(results)))
	assert.Len(t, Failed(results), 1)
	assert.ElementsMatch(t, []string{"q1", "q2", "q3"}, src.calls)
}

func TestScan_OrderStableUnderConcurrency(t *testing.T) {
	src := &fakeSource{
		lessons: map[string][]types.Lesson{
			"slow": {{ID: "s1"}, {ID: "s2"}},
			"fast": {{ID: "f1"}},
		},
		delays: map[string]time.Duration{"slow": 30 * time.Millisecond},
	}

	lessons := NewScanner(src, true, nil).Eligible(context.Background(), quests("slow", "fast"))

	assert.Equal(t, []string{"s1", "s2", "f1"}, lessonIDs(lessons))
}

func TestScan_RunsInParallel(t *testing.T) {
	src := &fakeSource{
		lessons: map[string][]types.Lesson{},
		delays: map[string]time.Duration{
			"q1": 50 * time.Millisecond,
			"q2": 50 * time.Millisecond,
			"q3": 50 * time.Millisecond,
		},
	}

	start := time.Now()
	NewScanner(src, true, nil).Scan(context.Background(), quests("q1", "q2", "q3"))

	assert.Less(t, time.Since(start), 140*time.Millisecond)
}

func TestScan_AllFail(t *testing.T) {
	src := &fakeSource{errs: map[string]error{
		"q1": errors.New("x"),
		"q2": errors.New("y"),
	}}

	lessons := NewScanner(src, true, nil).Eligible(context.Background(), quests("q1", "q2"))

	assert.Empty(t, lessons)
}

func TestScan_NoQuests(t *testing.T) {
	results := NewScanner(&fakeSource{}, true, nil).Scan(context.Background(), nil)
	assert.Empty(t, results)
	assert.Empty(t, Flatten(results))
}

func TestDiscoveryError_Message(t *testing.T) {
	err := &DiscoveryError{QuestID: "q7", Cause: errors.New("timeout")}
	assert.Equal(t, "failed to list lessons for quest q7: timeout", err.Error())
}
