package classify

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/ticket-wallet/constants"
)

//go:embed keywords.yaml
var defaultVocabulary []byte

// Vocabulary is the keyword configuration a Classifier scores against.
type Vocabulary struct {
	Threshold  int
	Categories map[constants.PassCategory][]string
}

type vocabularyFile struct {
	Threshold  int                 `yaml:"threshold"`
	Categories map[string][]string `yaml:"categories"`
}

// DefaultVocabulary returns the built-in English and Hebrew keyword sets.
func DefaultVocabulary() Vocabulary {
	v, err := ParseVocabulary(defaultVocabulary)
	if err != nil {
		panic(fmt.Sprintf("classify: embedded keywords: %v", err))
	}
	return v
}

// ParseVocabulary decodes a YAML vocabulary and rejects unknown categories.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Vocabulary{}, fmt.Errorf("decode vocabulary: %w", err)
	}
	if len(f.Categories) == 0 {
		return Vocabulary{}, fmt.Errorf("vocabulary has no categories")
	}
	v := Vocabulary{Threshold: f.Threshold, Categories: make(map[constants.PassCategory][]string, len(f.Categories))}
	for name, words := range f.Categories {
		cat := constants.PassCategory(name)
		if !cat.Valid() || cat == constants.Generic {
			return Vocabulary{}, fmt.Errorf("vocabulary: unknown category %q", name)
		}
		norms := make([]string, 0, len(words))
		for _, w := range words {
			norms = append(norms, strings.ToLower(norm.NFKC.String(w)))
		}
		v.Categories[cat] = norms
	}
	if v.Threshold <= 0 {
		v.Threshold = 2
	}
	return v, nil
}

// LoadVocabulary reads a vocabulary file; an empty path yields the default.
func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	return ParseVocabulary(b)
}

// Classifier picks a pass category by keyword support.
type Classifier struct {
	vocab  Vocabulary
	order  []constants.PassCategory
	logger *slog.Logger
}

func New(vocab Vocabulary, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	order := make([]constants.PassCategory, 0, len(vocab.Categories))
	for cat := range vocab.Categories {
		order = append(order, cat)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return &Classifier{vocab: vocab, order: order, logger: logger}
}

// WithThreshold overrides the vocabulary threshold when n is positive.
func (c *Classifier) WithThreshold(n int) *Classifier {
	if n > 0 {
		c.vocab.Threshold = n
	}
	return c
}

func content(text string, qrPayloads []string) string {
	return norm.NFKC.String(strings.ToLower(text)) + " " + strings.ToLower(strings.Join(qrPayloads, " "))
}

// Scores counts distinct keyword hits per category.
func (c *Classifier) Scores(text string, qrPayloads []string) map[constants.PassCategory]int {
	all := content(text, qrPayloads)
	scores := make(map[constants.PassCategory]int, len(c.order))
	for _, cat := range c.order {
		seen := map[string]struct{}{}
		for _, kw := range c.vocab.Categories[cat] {
			if _, dup := seen[kw]; dup || kw == "" {
				continue
			}
			seen[kw] = struct{}{}
			if strings.Contains(all, kw) {
				scores[cat]++
			}
		}
	}
	return scores
}

// Detect returns the strictly best-supported category, or Generic on a tie
// at the top or when the best score is under the threshold.
func (c *Classifier) Detect(text string, qrPayloads []string) constants.PassCategory {
	scores := c.Scores(text, qrPayloads)

	best := constants.Generic
	top, tied := 0, false
	for _, cat := range c.order {
		s := scores[cat]
		switch {
		case s > top:
			best, top, tied = cat, s, false
		case s == top && s > 0:
			tied = true
		}
	}

	out := best
	if tied || top < c.vocab.Threshold {
		out = constants.Generic
	}
	c.logger.Debug("classify.scores",
		"scores", scores,
		"max", top,
		"tied", tied,
		"category", out,
		"hebrew", strings.ContainsFunc(text, func(r rune) bool { return r >= 0x0590 && r <= 0x05FF }),
	)
	return out
}
