package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestNormalizePillar(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stem", PillarSTEM},
		{"  Wellness ", PillarWellness},
		{"ART", PillarArt},
		{"civics", PillarCivics},
		{"communication", PillarCommunication},
		{"history", PillarSTEM},
		{"", PillarSTEM},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePillar(tt.in))
		})
	}
}

func TestGeneratedTask_Draft(t *testing.T) {
	task := GeneratedTask{
		ID:          "l1-abc-1",
		LessonID:    "l1",
		QuestID:     "q1",
		Title:       "Build a bird feeder",
		Description: "Use recycled materials",
		Pillar:      PillarArt,
		XPValue:     150,
	}

	assert.Equal(t, TaskDraft{
		Title:       "Build a bird feeder",
		Description: "Use recycled materials",
		Pillar:      PillarArt,
		XPValue:     150,
	}, task.Draft())
}

func TestTaskPatch_Apply(t *testing.T) {
	task := GeneratedTask{ID: "t1", Title: "Old", Description: "Desc", Pillar: PillarSTEM, XPValue: 100}

	patched := TaskPatch{Title: strPtr("New"), XPValue: intPtr(250)}.Apply(task)

	assert.Equal(t, "New", patched.Title)
	assert.Equal(t, "Desc", patched.Description)
	assert.Equal(t, PillarSTEM, patched.Pillar)
	assert.Equal(t, 250, patched.XPValue)
	assert.Equal(t, "Old", task.Title, "original must not change")
}

func TestTaskPatch_Empty(t *testing.T) {
	assert.True(t, TaskPatch{}.Empty())
	assert.False(t, TaskPatch{Pillar: strPtr(PillarArt)}.Empty())
}

func TestTaskPatch_Validate(t *testing.T) {
	valid := &TaskPatch{Title: strPtr("Title"), Pillar: strPtr(PillarCivics), XPValue: intPtr(50)}
	assert.NoError(t, valid.Validate())

	assert.NoError(t, (&TaskPatch{}).Validate())

	badPillar := &TaskPatch{Pillar: strPtr("history")}
	assert.Error(t, badPillar.Validate())

	emptyTitle := &TaskPatch{Title: strPtr("")}
	assert.Error(t, emptyTitle.Validate())

	blankTitle := &TaskPatch{Title: strPtr(" \t  ")}
	assert.Error(t, blankTitle.Validate())

	negativeXP := &TaskPatch{XPValue: intPtr(-5)}
	assert.Error(t, negativeXP.Validate())
}

func TestGroupByQuest(t *testing.T) {
	lessons := []Lesson{
		{ID: "a1", QuestID: "qa", QuestTitle: "Quest A"},
		{ID: "b1", QuestID: "qb", QuestTitle: "Quest B"},
		{ID: "a2", QuestID: "qa", QuestTitle: "Quest A"},
	}

	groups := GroupByQuest(lessons)

	assert.Len(t, groups, 2)
	assert.Equal(t, "qa", groups[0].QuestID)
	assert.Equal(t, []string{"a1", "a2"}, []string{groups[0].Lessons[0].ID, groups[0].Lessons[1].ID})
	assert.Equal(t, "qb", groups[1].QuestID)
	assert.Len(t, groups[1].Lessons, 1)
	assert.Nil(t, GroupByQuest(nil))
}

func TestLesson_HasLinkedTasks(t *testing.T) {
	assert.False(t, Lesson{}.HasLinkedTasks())
	assert.False(t, Lesson{LinkedTaskIDs: []string{}}.HasLinkedTasks())
	assert.True(t, Lesson{LinkedTaskIDs: []string{"t1"}}.HasLinkedTasks())
}
