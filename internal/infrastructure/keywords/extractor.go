// Package keywords turns free text into content-addressed tags.
package keywords

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/unicode/norm"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const (
	defaultTopN     = 5
	defaultMaxInput = 20000
	minTermRunes    = 3
)

// Extractor scores single-noun keywords and adjective-noun keyphrases
// independently and returns the union of the top N of each.
type Extractor struct {
	topN     int
	maxInput int
}

var _ ports.TagExtractor = (*Extractor)(nil)

// NewExtractor returns an extractor taking the top n of each ranking; n<=0 means 5.
func NewExtractor(n int) *Extractor {
	if n <= 0 {
		n = defaultTopN
	}
	return &Extractor{topN: n, maxInput: defaultMaxInput}
}

type token struct {
	text string
	tag  string
}

type scored struct {
	term  string
	score float64
	first int
}

// ExtractTags never fails; empty or untaggable text yields an empty set.
func (e *Extractor) ExtractTags(text string) []domain.Tag {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return []domain.Tag{}
	}
	if len(text) > e.maxInput {
		text = strings.ToValidUTF8(text[:e.maxInput], "")
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return []domain.Tag{}
	}

	toks := make([]token, 0, len(doc.Tokens()))
	for _, t := range doc.Tokens() {
		toks = append(toks, token{text: strings.ToLower(t.Text), tag: t.Tag})
	}

	seen := map[string]bool{}
	tags := []domain.Tag{}
	for _, list := range [][]scored{keywordScores(toks), keyphraseScores(toks)} {
		for _, s := range top(list, e.topN) {
			if seen[s.term] {
				continue
			}
			seen[s.term] = true
			tags = append(tags, domain.Tag{ID: s.term, Name: s.term})
		}
	}
	return tags
}

// keywordScores ranks nouns by term frequency.
func keywordScores(toks []token) []scored {
	byTerm := map[string]*scored{}
	for i, t := range toks {
		if !isNoun(t.tag) || !usable(t.text) {
			continue
		}
		s, ok := byTerm[t.text]
		if !ok {
			s = &scored{term: t.text, first: i}
			byTerm[t.text] = s
		}
		s.score++
	}
	return flatten(byTerm)
}

// keyphraseScores ranks (adjective)* (noun)+ runs of two or more words by
// frequency times length.
func keyphraseScores(toks []token) []scored {
	byTerm := map[string]*scored{}

	var run []token
	start := 0
	flush := func() {
		for len(run) > 0 && !isNoun(run[len(run)-1].tag) {
			run = run[:len(run)-1]
		}
		if len(run) >= 2 {
			words := make([]string, len(run))
			for i, t := range run {
				words[i] = t.text
			}
			phrase := strings.Join(words, " ")
			s, ok := byTerm[phrase]
			if !ok {
				s = &scored{term: phrase, first: start}
				byTerm[phrase] = s
			}
			s.score += float64(len(run))
		}
		run = run[:0]
	}

	for i, t := range toks {
		switch {
		case isAdjective(t.tag) && usable(t.text):
			if len(run) > 0 && isNoun(run[len(run)-1].tag) {
				flush()
			}
			if len(run) == 0 {
				start = i
			}
			run = append(run, t)
		case isNoun(t.tag) && usable(t.text):
			if len(run) == 0 {
				start = i
			}
			run = append(run, t)
		default:
			flush()
		}
	}
	flush()

	return flatten(byTerm)
}

func flatten(m map[string]*scored) []scored {
	out := make([]scored, 0, len(m))
	for _, s := range m {
		out = append(out, *s)
	}
	return out
}

func top(list []scored, n int) []scored {
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].first < list[j].first
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func isNoun(tag string) bool      { return strings.HasPrefix(tag, "NN") }
func isAdjective(tag string) bool { return strings.HasPrefix(tag, "JJ") }

func usable(term string) bool {
	if utf8.RuneCountInString(term) < minTermRunes || stopwords[term] {
		return false
	}
	for _, r := range term {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"thing": true, "things": true, "way": true, "ways": true, "lot": true,
	"lots": true, "time": true, "times": true, "something": true, "anything": true,
	"everything": true, "nothing": true, "someone": true, "people": true, "stuff": true,
	"http": true, "https": true, "www": true, "com": true,
}
