package agent

import (
	"regexp"
	"strconv"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// Respect score bounds and the creation default.
const (
	MinRespect     = 0
	MaxRespect     = 100
	DefaultRespect = 70
)

// respectPattern matches the score-delta marker the agent embeds in
// its output, plus any whitespace immediately around it.
var respectPattern = regexp.MustCompile(`\s*\[RESPECT:([+-]?\d+)\]\s*`)

// RespectOutcome is the result of scanning agent output for a respect
// marker.
type RespectOutcome struct {
	Text      string // marker stripped, user-visible
	Delta     int
	Found     bool
	Sentiment ports.Sentiment
}

// ExtractRespect scans text for the first respect marker, strips it
// (with adjacent whitespace) from the visible text, and derives the
// sentiment label. Absence of a marker is the normal case. Stripping
// is idempotent: re-running on already-stripped text is a no-op.
func ExtractRespect(text string) RespectOutcome {
	match := respectPattern.FindStringSubmatchIndex(text)
	if match == nil {
		return RespectOutcome{Text: text, Sentiment: ports.SentimentNeutral}
	}

	// Atoi saturates on out-of-range literals, which the [0,100] clamp
	// absorbs anyway.
	delta, err := strconv.Atoi(text[match[2]:match[3]])
	if err != nil && delta == 0 {
		return RespectOutcome{Text: text, Sentiment: ports.SentimentNeutral}
	}

	before, after := text[:match[0]], text[match[1]:]
	var stripped string
	switch {
	case before == "":
		stripped = after
	case after == "":
		stripped = before
	default:
		// Interior marker: keep a single separator between the halves.
		stripped = before + " " + after
	}

	sentiment := ports.SentimentNeutral
	switch {
	case delta > 0:
		sentiment = ports.SentimentPositive
	case delta < 0:
		sentiment = ports.SentimentNegative
	}

	return RespectOutcome{
		Text:      stripped,
		Delta:     delta,
		Found:     true,
		Sentiment: sentiment,
	}
}

// ClampScore bounds a respect score to [MinRespect, MaxRespect].
func ClampScore(score int) int {
	if score < MinRespect {
		return MinRespect
	}
	if score > MaxRespect {
		return MaxRespect
	}
	return score
}
