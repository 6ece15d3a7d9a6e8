package script

import (
	"strings"

	"math-shorts-pipeline/internal/textutil"
	"math-shorts-pipeline/internal/types"
)

// Truncate enforces a word budget of n words on s, in place.
//
// Points go first: trailing sentences of the last point are removed, then
// whole points, last first. Hook and cta survive whenever n covers both.
// Below that the cta is kept whole if it fits and the hook is cut to the
// words left; a cta longer than n is itself cut to n words. n <= 0 disables
// the budget.
func Truncate(s *types.Script, n int) {
	defer s.CountWords()
	if n <= 0 || s.CountWords() <= n {
		return
	}

	for len(s.Points) > 0 && s.CountWords() > n {
		last := len(s.Points) - 1
		sentences := textutil.SplitSentences(s.Points[last])
		if len(sentences) > 1 {
			s.Points[last] = strings.Join(sentences[:len(sentences)-1], " ")
			continue
		}
		s.Points = s.Points[:last]
	}
	if s.CountWords() <= n {
		return
	}

	s.Points = nil
	ctaWords := textutil.CountWords(s.CTA)
	if ctaWords > n {
		s.Hook = ""
		s.CTA = textutil.FirstWords(s.CTA, n)
		return
	}
	s.Hook = textutil.FirstWords(s.Hook, n-ctaWords)
}
