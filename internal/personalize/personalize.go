// Package personalize maps student profiles to response-style
// directives. The mapping is a fixed rule table, not learned: every
// (profile, subject) combination yields a directive, falling back to
// the neutral one.
package personalize

import (
	"fmt"
	"strings"

	"tutor-rag/internal/models"
)

type Vocabulary string

const (
	VocabSimple   Vocabulary = "simple"
	VocabStandard Vocabulary = "standard"
	VocabAdvanced Vocabulary = "advanced"
)

type ExampleDensity string

const (
	ExamplesLow    ExampleDensity = "low"
	ExamplesMedium ExampleDensity = "medium"
	ExamplesHigh   ExampleDensity = "high"
)

// StyleDirective controls response complexity in the generation prompt.
type StyleDirective struct {
	Vocabulary Vocabulary
	Examples   ExampleDensity
	ToneNote   string
	Guidelines string
}

var neutralDirective = StyleDirective{
	Vocabulary: VocabStandard,
	Examples:   ExamplesMedium,
	ToneNote:   "Explain clearly at a Class 9 level.",
}

// subjectGuidelines carries the per-subject coaching text for students
// weak in that subject.
var subjectGuidelines = map[string]string{
	"physics": `- Use simple analogies and real-world examples for physics concepts
- Break down complex physics problems into smaller steps
- Avoid heavy mathematical derivations unless specifically asked
- Focus on conceptual understanding over calculations`,
	"chemistry": `- Use visual descriptions for chemical processes
- Relate chemistry concepts to daily life examples
- Avoid complex chemical equations unless necessary
- Focus on understanding why reactions happen`,
	"biology": `- Use relatable examples from the human body and nature
- Break down biological processes into simple steps
- Avoid complex biological terminology without explanation
- Focus on how biological processes affect everyday life`,
}

const advancedGuidelines = `- Use technical terminology where appropriate
- Include detailed explanations and mechanisms
- Make connections between different concepts
- Encourage deeper thinking with follow-up questions`

// profileSubject splits a student type into its subject and strength.
// General returns ("", false, false).
func profileSubject(t models.StudentType) (subject string, weak, strong bool) {
	s := string(t)
	switch {
	case strings.HasPrefix(s, "weak_"):
		return strings.TrimPrefix(s, "weak_"), true, false
	case strings.HasPrefix(s, "strong_"):
		return strings.TrimPrefix(s, "strong_"), false, true
	default:
		return "", false, false
	}
}

// DeriveStyle resolves the directive for a profile against the topics
// detected in the question. It is total: any combination not covered
// by a rule gets the neutral directive.
func DeriveStyle(profile models.StudentProfile, topics []string) StyleDirective {
	detected := SubjectsOf(topics)
	subject, weak, strong := profileSubject(profile.UserType)

	directive := neutralDirective

	if weak && subjectMatches(subject, detected) {
		directive = StyleDirective{
			Vocabulary: VocabSimple,
			Examples:   ExamplesHigh,
			ToneNote:   fmt.Sprintf("Be patient and encouraging; the student finds %s difficult.", subject),
			Guidelines: subjectGuidelines[subject],
		}
	} else if strong && subjectMatches(subject, detected) {
		directive = StyleDirective{
			Vocabulary: VocabAdvanced,
			Examples:   ExamplesLow,
			ToneNote:   fmt.Sprintf("The student is strong in %s; do not oversimplify.", subject),
			Guidelines: advancedGuidelines,
		}
	}

	// Declared weak subjects get extra clarity whenever they overlap
	// the question, regardless of the headline profile.
	if overlap := weakOverlap(profile.WeakSubjects, detected); len(overlap) > 0 {
		if directive.Vocabulary == VocabStandard {
			directive.Vocabulary = VocabSimple
			directive.Examples = ExamplesHigh
		}
		directive.ToneNote += fmt.Sprintf(" The student has declared weakness in: %s. Provide extra clarity on these.",
			strings.Join(overlap, ", "))
	}

	return directive
}

// Applied reports whether the directive deviates from neutral, i.e.
// whether personalization influenced the prompt.
func Applied(profile models.StudentProfile) bool {
	return profile.UserType != models.General || len(profile.WeakSubjects) > 0
}

func subjectMatches(subject string, detected []string) bool {
	for _, d := range detected {
		if d == subject {
			return true
		}
	}
	return false
}

func weakOverlap(weakSubjects, detected []string) []string {
	var overlap []string
	for _, w := range weakSubjects {
		if subjectMatches(strings.ToLower(w), detected) {
			overlap = append(overlap, strings.ToLower(w))
		}
	}
	return overlap
}
