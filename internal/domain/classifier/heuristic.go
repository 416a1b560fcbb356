package classifier

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Decision is the outcome of search classification.
type Decision string

const (
	Search    Decision = "search"
	NoSearch  Decision = "no_search"
	Ambiguous Decision = "ambiguous"
)

// Pattern is one named heuristic rule.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

var noSearchPatterns = []Pattern{
	{"greeting", regexp.MustCompile(`^(hi|hello|hey|hiya|howdy|yo|sup|greetings|good (morning|afternoon|evening|day))( there)?[\s!.,?]*$`)},
	{"thanks", regexp.MustCompile(`^(thanks|thank you|thank u|thx|ty|cheers|much appreciated)( so much| a lot| very much)?[\s!.,]*$`)},
	{"farewell", regexp.MustCompile(`^(bye|goodbye|good bye|see you|see ya|cya|later|good night)( later)?[\s!.,]*$`)},
	{"acknowledgement", regexp.MustCompile(`^(ok|okay|k|cool|nice|great|awesome|got it|sure|yes|no|yep|nope|alright|sounds good|perfect)[\s!.,]*$`)},
	{"meta", regexp.MustCompile(`^(who are you|what are you|what can you do|what is your name|what's your name|how are you( doing)?|are you (a bot|an ai|human|real)|tell me about yourself|help)[\s?!.]*$`)},
	{"arithmetic", regexp.MustCompile(`^(what is |what's |calculate |compute )?[\d\s.()]+([-+*/×÷^%][\d\s.()]+)+=?\s*\??$`)},
}

var searchPatterns = []Pattern{
	{"wh_question", regexp.MustCompile(`^(who|what|when|where|which|whose|whom)('s|\s+(is|are|was|were|did|does|do|has|have|had|will))\b`)},
	{"recency", regexp.MustCompile(`\b(latest|current|currently|today|tonight|yesterday|tomorrow|this (week|month|year)|right now|recent|recently|upcoming|breaking)\b`)},
	{"news_price_weather_score", regexp.MustCompile(`\b(news|headlines?|prices?|stocks?|shares|market cap|exchange rate|weather|forecast|scores?|standings|fixtures)\b`)},
	{"biographical", regexp.MustCompile(`\b(born|died|death|how old|married|wife|husband|biography|net worth|birthday)\b`)},
	{"how_to", regexp.MustCompile(`^how (to|do i|can i|should i)\b|\b(tutorial|step by step|instructions for)\b`)},
	{"superlative_comparison", regexp.MustCompile(`\b(best|worst|biggest|largest|smallest|tallest|fastest|richest|cheapest|vs\.?|versus|compared to|comparison|difference between)\b`)},
	{"year", regexp.MustCompile(`\b(19|20)\d{2}\b`)},
	{"role_title", regexp.MustCompile(`\b(president|prime minister|ceo|founder|king|queen|chancellor|governor|mayor|minister|chairman|head of state)\b`)},
	{"geography", regexp.MustCompile(`\b(capital|population|country|countries|located|continent|borders?|gdp|currency)\b`)},
}

// Heuristic classifies a query without any model call. It also returns the name of
// the matching pattern, empty for Ambiguous.
func Heuristic(query string) (Decision, string) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return Ambiguous, ""
	}

	for _, p := range noSearchPatterns {
		if p.Regex.MatchString(normalized) {
			return NoSearch, p.Name
		}
	}
	for _, p := range searchPatterns {
		if p.Regex.MatchString(normalized) {
			return Search, p.Name
		}
	}
	if hasEmbeddedProperNoun(query) {
		return Search, "proper_noun"
	}
	return Ambiguous, ""
}

// hasEmbeddedProperNoun reports whether a word after the first starts with a capital
// letter. The first word is skipped because sentence case capitalizes it anyway.
func hasEmbeddedProperNoun(query string) bool {
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) < 2 {
		return false
	}
	for _, word := range words[1:] {
		word = strings.TrimLeft(word, `"'“‘([{`)
		if word == "" || word == "I" || strings.HasPrefix(word, "I'") {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(word); unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
