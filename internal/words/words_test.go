package words

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eehab-saadat/skribly-backend/internal"
)

func writeWordFile(t *testing.T, dir, name string, words string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(words), 0o644))
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeWordFile(t, dir, "easy.json", `["cat","dog","sun","car","tree"]`)
	writeWordFile(t, dir, "medium.json", `["guitar","castle"]`)
	writeWordFile(t, dir, "hard.json", `["philosophy"]`)

	p := Load(dir, nil)

	stats := p.Stats()
	assert.Equal(t, 5, stats["easy"])
	assert.Equal(t, 2, stats["medium"])
	assert.Equal(t, 1, stats["hard"])
}

func TestLoadFallsBackWhenMissing(t *testing.T) {
	p := Load(filepath.Join(t.TempDir(), "nonexistent"), nil)

	for _, d := range []internal.WordDifficulty{
		internal.DifficultyEasy, internal.DifficultyMedium, internal.DifficultyHard,
	} {
		assert.NotEmpty(t, p.RandomWord(d), "difficulty %s", d)
	}
}

func TestRandomWordsDistinct(t *testing.T) {
	dir := t.TempDir()
	writeWordFile(t, dir, "easy.json", `["cat","dog","sun","car","tree","ball"]`)
	p := Load(dir, nil)

	for i := 0; i < 50; i++ {
		picked := p.RandomWords(internal.DifficultyEasy, 3)
		require.Len(t, picked, 3)
		seen := map[string]bool{}
		for _, w := range picked {
			require.False(t, seen[w], "duplicate %q in %v", w, picked)
			seen[w] = true
		}
	}
}

func TestRandomWordsShortList(t *testing.T) {
	dir := t.TempDir()
	writeWordFile(t, dir, "hard.json", `["philosophy","democracy"]`)
	p := Load(dir, nil)

	picked := p.RandomWords(internal.DifficultyHard, 3)
	assert.Len(t, picked, 2)
}

func TestIsValid(t *testing.T) {
	dir := t.TempDir()
	writeWordFile(t, dir, "easy.json", `["cat","dog"]`)
	p := Load(dir, nil)

	assert.True(t, p.IsValid("cat", internal.DifficultyEasy))
	assert.True(t, p.IsValid("CAT", internal.DifficultyEasy))
	assert.False(t, p.IsValid("zebra", internal.DifficultyEasy))
	assert.False(t, p.IsValid("cat", "bogus"))
}
