package reference

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sandevgo/tuskthread/internal/core"
)

const (
	defaultTemporalTurns = 3
	defaultKeywordTurns  = 3
)

// Explicit numbered forms ("question #2", "turn number 4") only make sense as
// a reference. The framed forms need a determiner or preposition in front, so
// "turn 2 cups into grams" or "error message 500" are not references.
var (
	indexExplicitRe = regexp.MustCompile(`\b(?:turn|question|message|answer|reply)\s*(?:#\s*|number\s+|no\.\s*)(\d+)\b`)
	indexFramedRe   = regexp.MustCompile(`\b(?:the|that|this|your|my|in|at|from|about|on|(?:back|go|jump|return) to)\s+(?:turn|question|message|answer|reply)\s+(\d+)\b`)
	indexSuffixRe   = regexp.MustCompile(`\b(?:the|that|your|my)\s+(\d+)(?:st|nd|rd|th)\s+(?:turn|question|message|answer|reply|one)\b`)
	indexOrdinalRe  = regexp.MustCompile(`\b(?:the|that|your|my)\s+(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\s+(?:turn|question|message|answer|reply|thing)\b`)

	earliestRe = regexp.MustCompile(`\b(?:(?:at|in|from) the (?:very )?(?:beginning|start)|earlier|initially|originally|at first|in the first place|early on)\b`)
	recentRe   = regexp.MustCompile(`\b(?:just now|a moment ago|you just said|(?:last|previous) (?:answer|reply|message|question))\b`)
)

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// Input is everything the resolver looks at. It is never mutated.
type Input struct {
	Message string
	// Path is the active path the message continues.
	Path []core.Version
	// HotFrom is the 1-based path position where the hot window starts.
	HotFrom int
	// Summaries maps a path position to the archive summary covering it.
	Summaries map[int]string
}

type Resolver struct {
	temporalTurns int
	keywordTurns  int
}

func NewResolver(cfg core.ReferenceConfig) *Resolver {
	r := &Resolver{
		temporalTurns: cfg.GetTemporalTurns(),
		keywordTurns:  cfg.GetKeywordTurns(),
	}
	if r.temporalTurns <= 0 {
		r.temporalTurns = defaultTemporalTurns
	}
	if r.keywordTurns <= 0 {
		r.keywordTurns = defaultKeywordTurns
	}
	return r
}

// Resolve classifies the message. The first matching class wins: index,
// temporal, recent, keyword. An explicit index ("turn #9") beyond the path
// is ErrTurnNotFound; a looser form beyond the path is not a reference.
func (r *Resolver) Resolve(in Input) (core.Reference, error) {
	msg := strings.ToLower(in.Message)

	if idx, ok := matchIndex(msg); ok {
		switch {
		case idx.n <= len(in.Path):
			return core.Reference{Class: core.ReferenceIndex, Positions: []int{idx.n}}, nil
		case idx.explicit:
			return core.Reference{}, core.TurnNotFound(idx.n)
		}
	}

	if earliestRe.MatchString(msg) {
		k := min(r.temporalTurns, len(in.Path))
		positions := make([]int, 0, k)
		for i := 1; i <= k; i++ {
			positions = append(positions, i)
		}
		return core.Reference{Class: core.ReferenceTemporal, Positions: positions}, nil
	}

	if recentRe.MatchString(msg) {
		return core.Reference{Class: core.ReferenceRecent}, nil
	}

	if ref, ok := r.matchKeyword(in); ok {
		return ref, nil
	}

	return core.Reference{Class: core.ReferenceNone}, nil
}

type index struct {
	n        int
	explicit bool
}

func matchIndex(msg string) (index, bool) {
	if n, ok := submatchInt(indexExplicitRe, msg); ok {
		return index{n: n, explicit: true}, true
	}
	if n, ok := submatchInt(indexFramedRe, msg); ok {
		return index{n: n}, true
	}
	if n, ok := submatchInt(indexSuffixRe, msg); ok {
		return index{n: n}, true
	}
	if m := indexOrdinalRe.FindStringSubmatch(msg); m != nil {
		return index{n: ordinals[m[1]]}, true
	}
	return index{}, false
}

func submatchInt(re *regexp.Regexp, msg string) (int, bool) {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type candidate struct {
	position int
	score    int
}

func (r *Resolver) matchKeyword(in Input) (core.Reference, bool) {
	hotFrom := in.HotFrom
	if hotFrom <= 0 || hotFrom > len(in.Path)+1 {
		hotFrom = len(in.Path) + 1
	}

	hotTopics := make(map[string]struct{})
	recorded := make(map[string]struct{})
	for i, v := range in.Path {
		for _, topic := range v.Topics {
			recorded[topic] = struct{}{}
			if i+1 >= hotFrom {
				hotTopics[topic] = struct{}{}
			}
		}
	}

	var terms []string
	seen := make(map[string]struct{})
	for _, term := range Terms(in.Message) {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		if _, ok := recorded[term]; !ok {
			continue
		}
		if _, hot := hotTopics[term]; hot {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return core.Reference{}, false
	}

	var candidates []candidate
	for i := 0; i < hotFrom-1; i++ {
		v := in.Path[i]
		pos := i + 1
		score := 0
		for _, term := range terms {
			switch {
			case containsTopic(v.Topics, term):
				score = max(score, 2)
			case strings.Contains(strings.ToLower(in.Summaries[pos]), term),
				strings.Contains(strings.ToLower(v.UserMessage), term):
				score = max(score, 1)
			}
		}
		if score > 0 {
			candidates = append(candidates, candidate{position: pos, score: score})
		}
	}
	if len(candidates) == 0 {
		return core.Reference{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].position > candidates[j].position
	})
	if len(candidates) > r.keywordTurns {
		candidates = candidates[:r.keywordTurns]
	}

	positions := make([]int, 0, len(candidates))
	for _, c := range candidates {
		positions = append(positions, c.position)
	}
	sort.Ints(positions)

	return core.Reference{Class: core.ReferenceKeyword, Positions: positions, Terms: terms}, true
}

func containsTopic(topics []string, term string) bool {
	for _, t := range topics {
		if t == term {
			return true
		}
	}
	return false
}
