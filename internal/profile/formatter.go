// Package profile turns questionnaire answers into the natural-language text
// that conditions a chat session, and validates answers on the way in.
package profile

import (
	"fmt"
	"strings"

	"github.com/xaenox/mindmesh-bot/internal/models"
)

const (
	NoKnowledgeProfile = "No knowledge profile available."
	NoLearnerProfile   = "No learning profile available."

	notSpecified = "not specified"
)

// DescribeKnowledge renders every field of p on its own labelled line.
// A nil profile yields NoKnowledgeProfile.
func DescribeKnowledge(p *models.KnowledgeProfile) string {
	if p == nil {
		return NoKnowledgeProfile
	}

	needs := notSpecified
	if len(p.SupportNeeds) > 0 {
		needs = strings.Join(p.SupportNeeds, ", ")
	}

	var b strings.Builder
	line(&b, "Name", text(p.Name))
	line(&b, "Age", text(p.Age))
	line(&b, "Background", text(p.Background))
	line(&b, "Domain familiarity", text(p.FamiliarityKW))
	line(&b, "Comfort with mathematics", scale(p.MathEq))
	line(&b, "Programming comfort", scale(p.ProgrammingComfort))
	line(&b, "Confidence asking questions", scale(p.ConfidenceAsking))
	line(&b, "Support needs", needs)
	return strings.TrimRight(b.String(), "\n")
}

// DescribeLearner renders every field of p on its own labelled line.
// A nil profile yields NoLearnerProfile.
func DescribeLearner(p *models.LearnerProfile) string {
	if p == nil {
		return NoLearnerProfile
	}

	var b strings.Builder
	line(&b, "Goals and challenges", text(p.Problematic))
	line(&b, "Understanding of the goals", scale(p.GoalUnderstanding))
	line(&b, "Precision level (0 simplified, 10 technical)", scale(p.PrecisionLevel))
	line(&b, "Enjoys stories and analogies", scale(p.Analogies))
	line(&b, "Conciseness (0 long and detailed, 10 short summaries)", scale(p.Conciseness))
	line(&b, "Learning mode (0 trial-and-error, 10 structured guidance)", scale(p.LearningMode))
	line(&b, "Explanation style", text(string(p.ExplanationStyle)))
	line(&b, "Wants quizzing", yesNo(p.Interactivity))
	line(&b, "Tone", text(string(p.Tone)))
	line(&b, "Humor", text(string(p.Humor)))
	line(&b, "Wants motivational phrasing", yesNo(p.Motivation))
	line(&b, "Adapt style over time", yesNo(p.Adaptability))
	return strings.TrimRight(b.String(), "\n")
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func text(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func scale(v int) string {
	return fmt.Sprintf("%d/%d", v, models.ScaleMax)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
