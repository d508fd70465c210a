// Package words supplies the word lists for the game: random draw-word
// options per difficulty, guess-target validation, and the masked /
// progressively revealed hint renderings sent to guessers.
package words

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
)

type Provider struct {
	words  map[internal.WordDifficulty][]string
	logger *zap.Logger
}

// Load reads easy.json / medium.json / hard.json from dir. A difficulty file
// that is missing or unreadable falls back to the built-in list so the server
// always has words to hand out.
func Load(dir string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		words:  make(map[internal.WordDifficulty][]string, 3),
		logger: logger.Named("words"),
	}

	for _, difficulty := range []internal.WordDifficulty{
		internal.DifficultyEasy,
		internal.DifficultyMedium,
		internal.DifficultyHard,
	} {
		list, err := readWordFile(filepath.Join(dir, string(difficulty)+".json"))
		if err != nil {
			p.logger.Warn("word file unavailable, using fallback list",
				zap.String("difficulty", string(difficulty)),
				zap.Error(err))
			list = fallbackWords[difficulty]
		}
		p.words[difficulty] = list
		p.logger.Info("loaded words",
			zap.String("difficulty", string(difficulty)),
			zap.Int("count", len(list)))
	}

	return p
}

func readWordFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty word list in %s", path)
	}
	return list, nil
}

func (p *Provider) list(difficulty internal.WordDifficulty) []string {
	if words, ok := p.words[difficulty]; ok {
		return words
	}
	return p.words[internal.DifficultyMedium]
}

// RandomWords draws count distinct words of the given difficulty.
func (p *Provider) RandomWords(difficulty internal.WordDifficulty, count int) []string {
	available := p.list(difficulty)
	if len(available) <= count {
		return append([]string(nil), available...)
	}

	picked := make([]string, 0, count)
	seen := make(map[int]bool, count)
	for len(picked) < count {
		i := rand.Intn(len(available))
		if seen[i] {
			continue
		}
		seen[i] = true
		picked = append(picked, available[i])
	}
	return picked
}

// RandomWord draws a single word of the given difficulty.
func (p *Provider) RandomWord(difficulty internal.WordDifficulty) string {
	words := p.RandomWords(difficulty, 1)
	if len(words) == 0 {
		return "drawing"
	}
	return words[0]
}

// IsValid reports whether word belongs to the difficulty's list,
// case-insensitively.
func (p *Provider) IsValid(word string, difficulty internal.WordDifficulty) bool {
	if _, ok := p.words[difficulty]; !ok {
		return false
	}
	target := strings.ToLower(word)
	for _, w := range p.words[difficulty] {
		if strings.ToLower(w) == target {
			return true
		}
	}
	return false
}

// Stats returns the loaded word count per difficulty.
func (p *Provider) Stats() map[string]int {
	stats := make(map[string]int, len(p.words))
	for difficulty, list := range p.words {
		stats[string(difficulty)] = len(list)
	}
	return stats
}
