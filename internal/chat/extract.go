package chat

import (
	"regexp"
	"strings"

	"github.com/spigell/asha/internal/jobs"
	"github.com/spigell/asha/internal/mentorship"
)

const placeStop = `(?:\s+(?:for|with|as|near|and|please)\b|\s*[,.!?;]|\s*$)`

var (
	// Only "in <place>" names a location; "at the moment" or "around here" do not.
	locationPattern = regexp.MustCompile(`(?i)\bin\s+([a-z][a-z .'-]*?)` + placeStop)

	titleAfterPattern = regexp.MustCompile(`(?i)\b(?:jobs?|openings?|positions?|roles?|vacanc(?:y|ies)|work)\s+(?:for|as)\s+(?:an?\s+)?([a-z][a-z0-9 +#./-]*?)` +
		`(?:\s+(?:in|at|near|around)\b|\s*[,.!?;]|\s*$)`)
	titleBeforePattern = regexp.MustCompile(`(?i)^(.*?)\s*\b(?:jobs?|openings?|positions?|roles?|vacanc(?:y|ies)|hiring)\b`)

	fieldPattern = regexp.MustCompile(`(?i)^.*\b(?:in|for|on)\s+([a-z][a-z0-9 +#./-]*?)\s*(?:[,.!?;]|$)`)

	wordPattern = regexp.MustCompile(`[A-Za-z0-9+#./-]+`)
)

var titleFiller = toSet(
	"find", "show", "me", "any", "some", "i", "im", "i'm", "am", "want", "need", "looking", "look",
	"for", "search", "searching", "get", "the", "a", "an", "latest", "new", "please", "are", "there",
	"can", "you", "help", "with", "give", "list", "all", "what", "recent", "good", "top", "best", "to",
	"apply", "is", "my", "of", "do", "have",
)

var fieldFiller = toSet(
	"mentor", "mentors", "mentorship", "guidance", "guide", "coach", "coaching", "me", "i", "need", "want",
	"a", "an", "find", "looking", "for", "get", "please", "can", "you", "connect", "with", "someone",
	"would", "like", "to", "be", "my", "in", "on",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// jobQuery pulls a job title and location out of a job-search message.
func jobQuery(text string) jobs.Query {
	q := jobs.Query{Title: jobs.DefaultTitle, Location: jobs.DefaultLocation, Page: 1, Limit: jobs.DefaultLimit}

	if m := locationPattern.FindStringSubmatch(text); m != nil {
		if loc := strings.TrimSpace(m[1]); loc != "" {
			q.Location = loc
		}
	}

	if m := titleAfterPattern.FindStringSubmatch(text); m != nil {
		if title := stripWords(m[1], titleFiller); title != "" {
			q.Title = title
			return q
		}
	}
	if m := titleBeforePattern.FindStringSubmatch(text); m != nil {
		if title := stripWords(m[1], titleFiller); title != "" {
			q.Title = title
		}
	}
	return q
}

// mentorshipField finds the area a user wants mentoring in.
func mentorshipField(text string) string {
	if m := fieldPattern.FindStringSubmatch(text); m != nil {
		if field := strings.TrimSpace(m[1]); field != "" {
			return field
		}
	}
	if field := stripWords(text, fieldFiller); field != "" {
		return field
	}
	return mentorship.DefaultField
}

// stripWords drops leading and trailing filler words and returns the rest.
func stripWords(text string, filler map[string]struct{}) string {
	words := wordPattern.FindAllString(text, -1)

	isFiller := func(w string) bool {
		_, ok := filler[strings.ToLower(strings.Trim(w, "./-"))]
		return ok
	}

	for len(words) > 0 && isFiller(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && isFiller(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
