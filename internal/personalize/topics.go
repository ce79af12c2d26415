package personalize

import (
	"sort"
	"strings"

	"tutor-rag/internal/models"
)

// topicKeywords maps Class 9 science topics to the words that signal
// them in a query or retrieved excerpt.
var topicKeywords = map[string][]string{
	"matter":      {"matter", "solid", "liquid", "gas", "state", "particle"},
	"motion":      {"motion", "speed", "velocity", "acceleration", "distance"},
	"force":       {"force", "newton", "pressure", "thrust"},
	"gravity":     {"gravity", "gravitation", "weight", "mass"},
	"work_energy": {"work", "energy", "power", "kinetic", "potential"},
	"sound":       {"sound", "wave", "frequency", "amplitude", "noise"},
	"atoms":       {"atom", "molecule", "element", "compound", "ion"},
	"cell":        {"cell", "tissue", "organ", "organism"},
	"diversity":   {"classification", "species", "kingdom", "taxonomy"},
	"health":      {"disease", "health", "immunity", "vaccine"},
}

// topicSubject folds topics into the subjects a student profile
// declares strength or weakness in.
var topicSubject = map[string]string{
	"matter":      "chemistry",
	"atoms":       "chemistry",
	"motion":      "physics",
	"force":       "physics",
	"gravity":     "physics",
	"work_energy": "physics",
	"sound":       "physics",
	"cell":        "biology",
	"diversity":   "biology",
	"health":      "biology",
}

// MatchTopics classifies the query (and any retrieved excerpts) into
// the known topic set. The result is sorted for determinism.
func MatchTopics(query string, chunks []models.RetrievedChunk) []string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(query))
	for _, c := range chunks {
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(c.Chunk.Content))
	}
	text := sb.String()

	var topics []string
	for topic, keywords := range topicKeywords {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				topics = append(topics, topic)
				break
			}
		}
	}
	sort.Strings(topics)
	return topics
}

// SubjectsOf maps detected topics to their subjects, deduplicated.
func SubjectsOf(topics []string) []string {
	seen := make(map[string]bool)
	var subjects []string
	for _, topic := range topics {
		subject, ok := topicSubject[topic]
		if ok && !seen[subject] {
			seen[subject] = true
			subjects = append(subjects, subject)
		}
	}
	sort.Strings(subjects)
	return subjects
}
