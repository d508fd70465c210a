package words

import "github.com/eehab-saadat/skribly-backend/internal"

// Built-in lists used when a word file is missing, so a bare checkout still
// serves games.
var fallbackWords = map[internal.WordDifficulty][]string{
	internal.DifficultyEasy: {
		"cat", "dog", "fish", "bird", "car", "tree", "house", "sun", "moon", "star",
		"ball", "book", "pen", "cup", "hat", "cake", "apple", "egg", "bee", "key",
	},
	internal.DifficultyMedium: {
		"elephant", "giraffe", "butterfly", "dinosaur", "rainbow", "mountain", "guitar",
		"piano", "bicycle", "airplane", "sandwich", "pizza", "teacher", "doctor", "castle",
	},
	internal.DifficultyHard: {
		"cryptocurrency", "photosynthesis", "metamorphosis", "constellation", "entrepreneur",
		"procrastination", "refrigerator", "democracy", "philosophy", "magnificent",
	},
}
