package reference

import (
	"fmt"
	"testing"

	"github.com/sandevgo/tuskthread/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refConfig struct {
	temporal int
	keyword  int
}

func (c refConfig) GetTemporalTurns() int { return c.temporal }
func (c refConfig) GetKeywordTurns() int  { return c.keyword }

func turn(id int, user string, topics ...string) core.Version {
	return core.Version{ID: 1, TurnID: id, UserMessage: user, AssistantMessage: "ok", Topics: topics}
}

// conversation builds a path of n turns about unrelated things.
func conversation(n int) []core.Version {
	path := make([]core.Version, 0, n)
	for i := 1; i <= n; i++ {
		topic := fmt.Sprintf("filler%d", i)
		path = append(path, turn(i, "tell me about "+topic, topic))
	}
	return path
}

func TestResolve_Index(t *testing.T) {
	r := NewResolver(refConfig{})
	path := conversation(5)

	tests := []struct {
		name    string
		message string
		want    int
	}{
		{name: "turn number", message: "Go back to turn 3 please", want: 3},
		{name: "question hash", message: "about question #2", want: 2},
		{name: "numeric ordinal", message: "in your 4th answer you said", want: 4},
		{name: "word ordinal", message: "Repeat the second question", want: 2},
		{name: "framed number", message: "what did you mean in message 5", want: 5},
		{name: "number word", message: "see answer number 1", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := r.Resolve(Input{Message: tt.message, Path: path, HotFrom: 1})
			require.NoError(t, err)
			assert.Equal(t, core.ReferenceIndex, ref.Class)
			assert.Equal(t, []int{tt.want}, ref.Positions)
		})
	}
}

func TestResolve_IndexBeyondPath(t *testing.T) {
	r := NewResolver(refConfig{})

	_, err := r.Resolve(Input{Message: "what was turn #9 about", Path: conversation(4)})
	assert.ErrorIs(t, err, core.ErrTurnNotFound)

	_, err = r.Resolve(Input{Message: "tell me about question number 6", Path: conversation(4)})
	assert.ErrorIs(t, err, core.ErrTurnNotFound)

	// a framed number past the end is not taken as a reference
	ref, err := r.Resolve(Input{Message: "go back to turn 9", Path: conversation(4)})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceNone, ref.Class)

	ref, err = r.Resolve(Input{Message: "Here is the first question", Path: nil})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceNone, ref.Class)
}

func TestResolve_NumbersThatAreNotReferences(t *testing.T) {
	r := NewResolver(refConfig{})
	path := conversation(40)

	messages := []string{
		"Can you turn 2 cups of flour into grams?",
		"I keep getting error message 500 from the server",
		"My son will turn 30 next week, gift ideas?",
		"message 11",
		"I want to turn 3 pages into a summary",
		"reply 2 people said yes",
	}
	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			ref, err := r.Resolve(Input{Message: msg, Path: path, HotFrom: 33})
			require.NoError(t, err)
			assert.NotEqual(t, core.ReferenceIndex, ref.Class)
			assert.Empty(t, ref.Positions)
		})
	}
}

func TestResolve_TemporalEarliest(t *testing.T) {
	r := NewResolver(refConfig{temporal: 3})

	ref, err := r.Resolve(Input{Message: "What did we discuss initially?", Path: conversation(12), HotFrom: 5})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceTemporal, ref.Class)
	assert.Equal(t, []int{1, 2, 3}, ref.Positions)

	short, err := r.Resolve(Input{Message: "earlier you said", Path: conversation(2), HotFrom: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, short.Positions)
}

func TestResolve_TemporalBeatsKeyword(t *testing.T) {
	r := NewResolver(refConfig{temporal: 3, keyword: 3})

	path := []core.Version{turn(1, "How does photosynthesis work?", "photosynthesis", "work")}
	for i := 2; i <= 21; i++ {
		topic := fmt.Sprintf("other%d", i)
		path = append(path, turn(i, "and "+topic, topic))
	}

	ref, err := r.Resolve(Input{
		Message:   "what did you say about photosynthesis at the beginning",
		Path:      path,
		HotFrom:   14,
		Summaries: map[int]string{1: "[turn 1] topics: photosynthesis"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceTemporal, ref.Class)
	assert.Contains(t, ref.Positions, 1)
}

func TestResolve_Recent(t *testing.T) {
	r := NewResolver(refConfig{})

	ref, err := r.Resolve(Input{Message: "Can you expand on what you just said?", Path: conversation(3), HotFrom: 1})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceRecent, ref.Class)
	assert.Empty(t, ref.Positions)
}

func TestResolve_Keyword(t *testing.T) {
	r := NewResolver(refConfig{keyword: 2})

	path := conversation(20)
	path[2] = turn(3, "explain mitochondria", "mitochondria", "cells")
	path[6] = turn(7, "more on cells", "cells")
	path[9] = turn(10, "what about energy", "energy")

	ref, err := r.Resolve(Input{
		Message:   "Back to mitochondria and cells",
		Path:      path,
		HotFrom:   13,
		Summaries: map[int]string{10: "energy in mitochondria"},
	})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceKeyword, ref.Class)
	assert.Equal(t, []string{"mitochondria", "cells"}, ref.Terms)
	// turns 3 and 7 match a recorded topic, turn 10 only the summary
	assert.Equal(t, []int{3, 7}, ref.Positions)
}

func TestResolve_KeywordIgnoresHotTopics(t *testing.T) {
	r := NewResolver(refConfig{})

	path := conversation(10)
	path[1] = turn(2, "golang channels", "channels")
	path[8] = turn(9, "golang channels again", "channels")

	ref, err := r.Resolve(Input{Message: "channels", Path: path, HotFrom: 8})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceNone, ref.Class)
}

func TestResolve_None(t *testing.T) {
	r := NewResolver(refConfig{})

	ref, err := r.Resolve(Input{Message: "How is the weather today?", Path: conversation(3), HotFrom: 1})
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceNone, ref.Class)
}

func TestTopics(t *testing.T) {
	topics := Topics("How does photosynthesis work in plants?", "**Photosynthesis** converts light into chemical energy in plants.")
	require.NotEmpty(t, topics)
	assert.Equal(t, "photosynthesis", topics[0])
	assert.Contains(t, topics, "plants")
	assert.NotContains(t, topics, "does")
	assert.LessOrEqual(t, len(topics), maxTopics)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"photosynthesis", "chlorophyll"}, Terms("What about Photosynthesis and chlorophyll, 42?"))
	assert.Empty(t, Terms("it is at the beginning"))
}
