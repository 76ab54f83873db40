package profile

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/xaenox/mindmesh-bot/internal/models"
)

// KnowledgeFormTemplate is the text questionnaire accepted by ParseKnowledgeForm.
const KnowledgeFormTemplate = `name: Alice
age: 29
background: Biology, 5 years
familiarity: genomics, lab work
math: 7
programming: 4
confidence: 6
support: Statistics, Programming`

// LearnerFormTemplate is the text questionnaire accepted by ParseLearnerForm.
const LearnerFormTemplate = `goals: Understand how the analysis pipeline fits together
understanding: 3
precision: 6
analogies: 8
conciseness: 5
mode: 7
style: Step-by-step
quiz: yes
tone: Casual
humor: Playful
motivation: yes
adaptability: yes`

var knowledgeKeys = map[string]string{
	"name":                "name",
	"age":                 "age",
	"background":          "background",
	"familiarity":         "familiarity_kw",
	"familiarity_kw":      "familiarity_kw",
	"math":                "math_eq",
	"math_eq":             "math_eq",
	"programming":         "programming_comfort",
	"programming_comfort": "programming_comfort",
	"confidence":          "confidence_asking",
	"confidence_asking":   "confidence_asking",
	"support":             "support_needs",
	"support_needs":       "support_needs",
}

var learnerKeys = map[string]string{
	"goals":              "problematic",
	"problematic":        "problematic",
	"understanding":      "goal_understanding",
	"goal_understanding": "goal_understanding",
	"precision":          "precision_level",
	"precision_level":    "precision_level",
	"analogies":          "analogies",
	"conciseness":        "conciseness",
	"mode":               "learning_mode",
	"learning_mode":      "learning_mode",
	"style":              "explanation_style",
	"explanation_style":  "explanation_style",
	"quiz":               "interactivity",
	"interactivity":      "interactivity",
	"tone":               "tone",
	"humor":              "humor",
	"motivation":         "motivation",
	"adaptability":       "adaptability",
}

// ParseKnowledgeForm reads "key: value" lines into a knowledge profile.
// The result is normalized and validated.
func ParseKnowledgeForm(form string) (*models.KnowledgeProfile, error) {
	answers, fields := readForm(form, knowledgeKeys)
	p := &models.KnowledgeProfile{}

	for key, value := range answers {
		switch key {
		case "name":
			p.Name = value
		case "age":
			p.Age = value
		case "background":
			p.Background = value
		case "familiarity_kw":
			p.FamiliarityKW = value
		case "math_eq":
			p.MathEq = readScale(key, value, fields)
		case "programming_comfort":
			p.ProgrammingComfort = readScale(key, value, fields)
		case "confidence_asking":
			p.ConfidenceAsking = readScale(key, value, fields)
		case "support_needs":
			p.SupportNeeds = lo.Map(strings.Split(value, ","), func(s string, _ int) string {
				return strings.TrimSpace(s)
			})
		}
	}

	return p, finish(fields, func() error { return PrepareKnowledge(p) })
}

// ParseLearnerForm reads "key: value" lines into a learner profile.
// The result is normalized and validated.
func ParseLearnerForm(form string) (*models.LearnerProfile, error) {
	answers, fields := readForm(form, learnerKeys)
	p := &models.LearnerProfile{}

	for key, value := range answers {
		switch key {
		case "problematic":
			p.Problematic = value
		case "goal_understanding":
			p.GoalUnderstanding = readScale(key, value, fields)
		case "precision_level":
			p.PrecisionLevel = readScale(key, value, fields)
		case "analogies":
			p.Analogies = readScale(key, value, fields)
		case "conciseness":
			p.Conciseness = readScale(key, value, fields)
		case "learning_mode":
			p.LearningMode = readScale(key, value, fields)
		case "explanation_style":
			p.ExplanationStyle = models.ExplanationStyle(value)
		case "interactivity":
			p.Interactivity = readYesNo(key, value, fields)
		case "tone":
			p.Tone = models.Tone(value)
		case "humor":
			p.Humor = models.Humor(value)
		case "motivation":
			p.Motivation = readYesNo(key, value, fields)
		case "adaptability":
			p.Adaptability = readYesNo(key, value, fields)
		}
	}

	return p, finish(fields, func() error { return PrepareLearner(p) })
}

// readForm maps known keys to their canonical field name. Unknown keys are
// recorded as field errors.
func readForm(form string, keys map[string]string) (map[string]string, map[string]string) {
	answers := make(map[string]string)
	fields := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(form))
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		key, value, ok := strings.Cut(raw, ":")
		if !ok {
			key, value, ok = strings.Cut(raw, "=")
		}
		normalized := normalizeKey(key)
		if !ok {
			fields[normalized] = "expected \"key: value\""
			continue
		}
		field, known := keys[normalized]
		if !known {
			fields[normalized] = "unknown question"
			continue
		}
		answers[field] = strings.TrimSpace(value)
	}

	return answers, fields
}

func finish(fields map[string]string, prepare func() error) error {
	err := prepare()
	if len(fields) == 0 {
		return err
	}
	if verr, ok := err.(*ValidationError); ok {
		for k, v := range verr.Fields {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}
	return &ValidationError{Fields: fields}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(key)
}

func readScale(key, value string, fields map[string]string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		fields[key] = fmt.Sprintf("%q is not a number from %d to %d", value, models.ScaleMin, models.ScaleMax)
		return 0
	}
	return n
}

func readYesNo(key, value string, fields map[string]string) bool {
	switch strings.ToLower(value) {
	case "yes", "y", "true":
		return true
	case "no", "n", "false", "":
		return false
	}
	fields[key] = fmt.Sprintf("%q is not yes or no", value)
	return false
}
