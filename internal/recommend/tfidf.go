package recommend

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// French-heavy stopword list: the corpus is community text from Guinea, with
// some English mixed in.
var stopwords = map[string]bool{
	"le": true, "la": true, "les": true, "un": true, "une": true, "des": true,
	"de": true, "du": true, "et": true, "ou": true, "mais": true, "donc": true,
	"dans": true, "sur": true, "sous": true, "avec": true, "sans": true,
	"pour": true, "par": true, "est": true, "sont": true, "être": true,
	"avoir": true, "il": true, "elle": true, "ils": true, "elles": true,
	"nous": true, "vous": true, "je": true, "tu": true, "on": true,
	"ce": true, "cette": true, "ces": true, "son": true, "sa": true,
	"ses": true, "mon": true, "ma": true, "mes": true, "au": true,
	"aux": true, "qui": true, "que": true, "quoi": true, "pas": true,
	"plus": true, "très": true, "tout": true, "tous": true, "toute": true,
	"the": true, "a": true, "an": true, "and": true, "or": true, "in": true,
	"of": true, "to": true, "is": true, "are": true,
	"for": true, "with": true, "this": true, "that": true, "it": true,
}

func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, w := range words {
		if len(w) >= 2 && !stopwords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

type keywordScore struct {
	term  string
	score float64
}

// TopKeywords ranks terms across the corpus by average TF-IDF weight and
// returns the best n. An empty or all-stopword corpus yields nil.
func TopKeywords(docs []string, n int) []string {
	tokenized := make([][]string, 0, len(docs))
	for _, doc := range docs {
		if toks := tokenize(doc); len(toks) > 0 {
			tokenized = append(tokenized, toks)
		}
	}
	if len(tokenized) == 0 {
		return nil
	}

	// Document frequency per term.
	df := make(map[string]int)
	for _, toks := range tokenized {
		seen := make(map[string]bool)
		for _, t := range toks {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	total := float64(len(tokenized))
	agg := make(map[string]float64)
	for _, toks := range tokenized {
		tf := make(map[string]float64)
		for _, t := range toks {
			tf[t]++
		}
		for t, count := range tf {
			idf := math.Log((1+total)/(1+float64(df[t]))) + 1
			agg[t] += (count / float64(len(toks))) * idf
		}
	}

	scored := make([]keywordScore, 0, len(agg))
	for t, s := range agg {
		scored = append(scored, keywordScore{term: t, score: s / total})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].term < scored[j].term
	})

	if n > len(scored) {
		n = len(scored)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = scored[i].term
	}
	return out
}
