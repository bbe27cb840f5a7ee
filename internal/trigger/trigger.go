// Package trigger detects emotions and gesture requests in chat text.
//
// The avatar only consumes the resulting enum values; detection strategies
// are swappable behind EmotionClassifier and GestureClassifier.
package trigger

import (
	"regexp"
	"strings"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

// EmotionClassifier maps text to the avatar emotion it expresses.
type EmotionClassifier interface {
	Emotion(text string) avatar3d.Emotion
}

// GestureClassifier maps text to a gesture request, or "" for none.
type GestureClassifier interface {
	Gesture(text string) avatar3d.GestureKind
}

// Classifier does both.
type Classifier interface {
	EmotionClassifier
	GestureClassifier
}

type emotionRule struct {
	emotion  avatar3d.Emotion
	patterns []*regexp.Regexp
}

type gestureRule struct {
	gesture avatar3d.GestureKind
	pattern *regexp.Regexp
}

// emotionRules are scored in order; on a tie the earlier rule wins.
var emotionRules = []emotionRule{
	{avatar3d.EmotionHappy, compile(`(?i)\[happy\]`, `(?i)\[joy\]`, `😊|😄|😃|🥰|✨`)},
	{avatar3d.EmotionSad, compile(`(?i)\[sad\]`, `(?i)\[crying\]`, `😢|😭|🥺`)},
	{avatar3d.EmotionAngry, compile(`(?i)\[angry\]`, `(?i)\[mad\]`, `😠|😤|💢`)},
	{avatar3d.EmotionSurprised, compile(`(?i)\[surprised\]`, `(?i)\[shocked\]`, `😲|😱|!!`)},
	{avatar3d.EmotionBlush, compile(`(?i)\[blush\]`, `(?i)\[embarrassed\]`, `😳|💕|////`)},
	{avatar3d.EmotionExcited, compile(`(?i)\[excited\]`, `(?i)\[thrilled\]`, `🎉|✨|💫`)},
	{avatar3d.EmotionPout, compile(`(?i)\[pout\]`, `(?i)\[hmph\]`, `😤|😾`)},
	{avatar3d.EmotionLove, compile(`(?i)\[love\]`, `(?i)\[heart\]`, `💗|💕|♡|💓|😍`)},
	{avatar3d.EmotionThinking, compile(`(?i)\[thinking\]`, `(?i)\[hmm\]`, `🤔|💭`)},
}

// gestureRules are tried in order; the first match wins.
var gestureRules = []gestureRule{
	{avatar3d.GestureHairFlip, word(`hair\s*flip`)},
	{avatar3d.GestureBlowKiss, word(`(blow(s|ing)?\s+(a\s+)?)?kiss(es)?`)},
	{avatar3d.GestureTwirl, word(`twirl(s|ing)?`)},
	{avatar3d.GestureSpin, word(`spin(s|ning)?`)},
	{avatar3d.GestureDance, word(`danc(e|es|ing)`)},
	{avatar3d.GestureJump, word(`jump(s|ing)?`)},
	{avatar3d.GestureBow, word(`bow(s|ing)?`)},
	{avatar3d.GestureWink, word(`wink(s|ing)?`)},
	{avatar3d.GesturePout, word(`pout(s|ing)?|hmph`)},
	{avatar3d.GestureBlush, word(`blush(es|ing)?`)},
	{avatar3d.GestureSurprise, word(`wow|surprise[sd]?`)},
	{avatar3d.GestureWave, word(`wav(e|es|ing)|hi|hello|hey`)},
}

var (
	tagPattern   = regexp.MustCompile(`(?i)\[(happy|sad|angry|surprised|blush|excited|pout|love|thinking|joy|crying|mad|shocked|embarrassed|thrilled|hmph|heart|hmm)\]`)
	spacePattern = regexp.MustCompile(`\s+`)
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func word(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + expr + `)\b`)
}

// KeywordClassifier scores emotion tags and emoji, and matches gesture
// keywords on word boundaries.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Emotion returns the highest scoring emotion, or neutral when nothing
// matches. Each match is worth 10 points.
func (KeywordClassifier) Emotion(text string) avatar3d.Emotion {
	best, bestScore := avatar3d.EmotionNeutral, 0
	for _, rule := range emotionRules {
		score := 0
		for _, p := range rule.patterns {
			score += len(p.FindAllStringIndex(text, -1)) * 10
		}
		if score > bestScore {
			best, bestScore = rule.emotion, score
		}
	}
	return best
}

// Gesture ignores emotion tags so "[pout]" sets a mood without also
// triggering the pout gesture.
func (KeywordClassifier) Gesture(text string) avatar3d.GestureKind {
	text = tagPattern.ReplaceAllString(text, " ")
	for _, rule := range gestureRules {
		if rule.pattern.MatchString(text) {
			return rule.gesture
		}
	}
	return ""
}

// CleanTags strips emotion tags and collapses whitespace, leaving text fit
// for display and speech.
func CleanTags(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
