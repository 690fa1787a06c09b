package reference

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sandevgo/tuskthread/pkg/conv"
)

const maxTopics = 6

var stopWords = toSet(`a about above after again against all also am an and any are as at be because been
before being below between both but by can could did do does doing done down during each else even ever
few for from further get got had has have having he her here hers him his how i if in into is it its itself
just know let like me more most much my myself no nor not now of off on once only or other our ours out over
own please same say said she should so some such tell than that the their them then there these they thing
things this those through to too under until up us very want was we were what when where which while who whom
why will with would yes you your yours yourself beginning earlier start first second third last previous
question questions answer answers message messages turn turns reply mean meant talk talked discuss discussed
again really maybe something anything everything one two three`)

func toSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// Terms splits text into lowercase content words in order of appearance.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if isNumber(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Topics extracts the keywords recorded for a turn. Words of the user
// message count double; ties keep first appearance order.
func Topics(userMessage, assistantMessage string) []string {
	type score struct {
		n     int
		first int
	}
	scores := make(map[string]*score)
	order := 0

	add := func(words []string, weight int) {
		for _, w := range words {
			s, ok := scores[w]
			if !ok {
				s = &score{first: order}
				scores[w] = s
				order++
			}
			s.n += weight
		}
	}
	add(Terms(userMessage), 2)
	add(Terms(conv.PlainText(assistantMessage)), 1)

	topics := make([]string, 0, len(scores))
	for w := range scores {
		topics = append(topics, w)
	}
	sort.Slice(topics, func(i, j int) bool {
		a, b := scores[topics[i]], scores[topics[j]]
		if a.n != b.n {
			return a.n > b.n
		}
		return a.first < b.first
	})

	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
