package sentiment

import (
	"unicode"

	"toolscout/internal/core"
)

// Label values produced by the scorer.
const (
	LabelPositive = "positive"
	LabelNeutral  = "neutral"
	LabelNegative = "negative"

	// RatingUnknown is the tool-level rating when zero mentions could be
	// analyzed.
	RatingUnknown = "unknown"
)

// Thresholds on the normalized score that separate the labels. The same
// boundaries apply to per-mention labels and the tool-level rating.
const (
	positiveThreshold = 0.02
	negativeThreshold = -0.02
)

// positiveWords and negativeWords are the fixed lexicon. The scorer is a
// deliberate approximation: it counts word matches, it does not understand
// negation, sarcasm or context. Keep both sets lowercase.
var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {}, "awesome": {},
	"love": {}, "loved": {}, "best": {}, "fantastic": {}, "wonderful": {},
	"helpful": {}, "useful": {}, "impressive": {}, "solid": {}, "fast": {},
	"reliable": {}, "easy": {}, "powerful": {}, "smooth": {}, "intuitive": {},
	"productive": {}, "recommend": {}, "recommended": {}, "favorite": {},
	"works": {}, "stable": {}, "polished": {}, "slick": {}, "efficient": {},
	"free": {}, "flexible": {}, "clean": {}, "simple": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "worst": {},
	"hate": {}, "hated": {}, "broken": {}, "slow": {}, "buggy": {},
	"bug": {}, "bugs": {}, "annoying": {}, "useless": {}, "expensive": {},
	"disappointing": {}, "disappointed": {}, "frustrating": {}, "frustrated": {},
	"crash": {}, "crashes": {}, "crashed": {}, "fails": {}, "failed": {},
	"failure": {}, "poor": {}, "clunky": {}, "unreliable": {}, "confusing": {},
	"bloated": {}, "scam": {}, "laggy": {}, "unusable": {}, "overpriced": {},
}

// Highlight records one lexicon hit and its polarity.
type Highlight struct {
	Token    string `json:"token"`
	Polarity string `json:"polarity"`
}

// Score is the result of scoring one block of text.
type Score struct {
	Score      int         `json:"score"`
	Normalized float64     `json:"normalized"`
	Label      string      `json:"label"`
	TokenCount int         `json:"token_count"`
	Highlights []Highlight `json:"highlights,omitempty"`
}

// Analyze scores a block of text against the fixed lexicon. It is a pure
// function: identical input always yields an identical Score.
//
// score = positive matches - negative matches
// normalized = score / max(tokenCount, 1), so normalized is always in [-1, 1].
func Analyze(text string) Score {
	tokens := Tokenize(text)

	var positives, negatives int
	var highlights []Highlight

	for _, tok := range tokens {
		if _, ok := positiveWords[tok]; ok {
			positives++
			highlights = append(highlights, Highlight{Token: tok, Polarity: LabelPositive})
			continue
		}
		if _, ok := negativeWords[tok]; ok {
			negatives++
			highlights = append(highlights, Highlight{Token: tok, Polarity: LabelNegative})
		}
	}

	score := positives - negatives
	denom := len(tokens)
	if denom < 1 {
		denom = 1
	}
	normalized := float64(score) / float64(denom)

	return Score{
		Score:      score,
		Normalized: normalized,
		Label:      LabelFor(normalized),
		TokenCount: len(tokens),
		Highlights: highlights,
	}
}

// Tokenize lower-cases text and splits it on non-alphanumeric boundaries.
func Tokenize(text string) []string {
	var tokens []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, string(current))
			current = current[:0]
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current = append(current, unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// LabelFor maps a normalized score onto a label: > 0.02 positive, < -0.02
// negative, neutral otherwise.
func LabelFor(normalized float64) string {
	switch {
	case normalized > positiveThreshold:
		return LabelPositive
	case normalized < negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Aggregate folds per-mention results into a tool-level summary. Mentions
// with a fetch/analysis error are excluded from the averages and the
// distribution but remain in the record for transparency. The overall rating
// uses the same thresholds as per-mention labels, with RatingUnknown when
// nothing could be analyzed.
func Aggregate(mentions []core.SentimentMention) core.SentimentSummary {
	var summary core.SentimentSummary

	var sumScore, sumNormalized float64
	analyzed := 0

	for _, m := range mentions {
		if m.Error != "" {
			continue
		}
		analyzed++
		sumScore += float64(m.Score)
		sumNormalized += m.NormalizedScore

		switch m.Label {
		case LabelPositive:
			summary.Positive++
		case LabelNegative:
			summary.Negative++
		default:
			summary.Neutral++
		}
	}

	if analyzed == 0 {
		summary.Rating = RatingUnknown
		return summary
	}

	summary.AverageScore = sumScore / float64(analyzed)
	summary.AverageNormalized = sumNormalized / float64(analyzed)
	summary.Rating = LabelFor(summary.AverageNormalized)

	return summary
}
