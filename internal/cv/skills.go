package cv

import (
	"regexp"
	"strings"
)

// skillKeywords is the vocabulary DetectSkills matches against.
var skillKeywords = []string{
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript",
	"React", "Vue", "Angular", "Node.js", "Docker", "Kubernetes",
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "AWS", "Azure", "GCP",
	"GraphQL", "REST", "Microservices", "Git", "CI/CD",
	"Machine Learning", "Data Science", "DevOps", "Figma", "SQL",
}

var skillPatterns = compileSkillPatterns(skillKeywords)

func compileSkillPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		// Word boundaries keep "Go" from matching "Google".
		patterns[i] = regexp.MustCompile(`(?i)(^|[^\pL\pN])` + regexp.QuoteMeta(kw) + `($|[^\pL\pN])`)
	}
	return patterns
}

// DetectSkills returns the known skills mentioned in text, in vocabulary order.
// It is a keyword match only, used to prefill role skills from a JD.
func DetectSkills(text string) []string {
	skills := []string{}
	seen := map[string]bool{}
	for i, re := range skillPatterns {
		kw := skillKeywords[i]
		if !re.MatchString(text) {
			continue
		}
		key := strings.ToLower(kw)
		if kw == "Golang" {
			key = "go"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		if kw == "Golang" {
			kw = "Go"
		}
		skills = append(skills, kw)
	}
	return skills
}

// ParseSkills splits a comma separated list, trimming blanks and duplicates.
func ParseSkills(s string) []string {
	skills := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[strings.ToLower(part)] {
			continue
		}
		seen[strings.ToLower(part)] = true
		skills = append(skills, part)
	}
	return skills
}
