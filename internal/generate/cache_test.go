package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgen-server/internal/model"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	drafts := []model.QuestionDraft{
		{Question: "Q1?", CorrectAnswer: "A", Marks: 2},
		{Question: "Q2?", CorrectAnswer: "B", Marks: 2},
	}

	fp := Fingerprint("Biology", "Cells", model.BloomApply, nil)
	_, ok := cache.Get(fp)
	assert.False(t, ok, "cold cache must miss")

	require.NoError(t, cache.Put(fp, drafts))

	got, ok := cache.Get(fp)
	require.True(t, ok)
	assert.Equal(t, drafts, got)
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	require.NoError(t, err)

	fp := Fingerprint("Biology", "Cells", model.BloomApply, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fp+".json"), []byte("not json"), 0o644))

	_, ok := cache.Get(fp)
	assert.False(t, ok)
}

func TestFingerprintStableAcrossRowOrder(t *testing.T) {
	a := &model.Rubric{
		QuestionDistributions: []model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 5, MarksEach: 1},
			{QuestionType: model.TypeEssay, Count: 2, MarksEach: 10},
		},
		LODistributions: []model.LearningOutcomeDistribution{
			{LearningOutcome: "LO1", Percentage: 60},
			{LearningOutcome: "LO2", Percentage: 40},
		},
	}
	b := &model.Rubric{
		ID: 99, // storage identity must not affect the fingerprint
		QuestionDistributions: []model.QuestionTypeDistribution{
			{QuestionType: model.TypeEssay, Count: 2, MarksEach: 10},
			{QuestionType: model.TypeMCQ, Count: 5, MarksEach: 1},
		},
		LODistributions: []model.LearningOutcomeDistribution{
			{LearningOutcome: "LO2", Percentage: 40},
			{LearningOutcome: "LO1", Percentage: 60},
		},
	}

	assert.Equal(t,
		Fingerprint("Bio", "Cells", model.BloomApply, a),
		Fingerprint("Bio", "Cells", model.BloomApply, b),
	)
}

func TestFingerprintSensitivity(t *testing.T) {
	r := &model.Rubric{
		QuestionDistributions: []model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 5, MarksEach: 1},
		},
	}
	base := Fingerprint("Bio", "Cells", model.BloomApply, r)

	assert.NotEqual(t, base, Fingerprint("Bio", "Cells", model.BloomCreate, r))
	assert.NotEqual(t, base, Fingerprint("Bio", "Mitosis", model.BloomApply, r))

	changed := &model.Rubric{
		QuestionDistributions: []model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 6, MarksEach: 1},
		},
	}
	assert.NotEqual(t, base, Fingerprint("Bio", "Cells", model.BloomApply, changed))
}
