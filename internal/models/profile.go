package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/samber/lo"
)

const (
	ScaleMin = 0
	ScaleMax = 10
)

// SupportNeeds is the closed set of subjects a learner can ask support for.
var SupportNeeds = []string{
	"Project problematic",
	"Mathematics",
	"Statistics",
	"Programming",
	"Biological Sciences",
	"Biomedical Sciences",
	"Chemistry",
	"Physics",
	"Astronomy",
	"Environmental Sciences",
	"Computer Sciences",
	"Engineering",
	"Medical Sciences",
}

type ExplanationStyle string

const (
	StepByStep      ExplanationStyle = "Step-by-step"
	AnalogyDriven   ExplanationStyle = "Analogy-driven"
	BigPictureFirst ExplanationStyle = "Big-picture-first"
	DetailsFirst    ExplanationStyle = "Details-first"
)

var ExplanationStyles = []ExplanationStyle{StepByStep, AnalogyDriven, BigPictureFirst, DetailsFirst}

type Tone string

const (
	ToneFormal Tone = "Formal"
	ToneCasual Tone = "Casual"
)

var Tones = []Tone{ToneFormal, ToneCasual}

type Humor string

const (
	HumorPlayful Humor = "Playful"
	HumorSerious Humor = "Serious"
)

var Humors = []Humor{HumorPlayful, HumorSerious}

// KnowledgeProfile holds the learner's background as answered in the knowledge questionnaire.
type KnowledgeProfile struct {
	Name               string   `json:"name"`
	Age                string   `json:"age"`
	Background         string   `json:"background"`
	FamiliarityKW      string   `json:"familiarity_kw"`
	MathEq             int      `json:"math_eq" validate:"min=0,max=10"`
	ProgrammingComfort int      `json:"programming_comfort" validate:"min=0,max=10"`
	ConfidenceAsking   int      `json:"confidence_asking" validate:"min=0,max=10"`
	SupportNeeds       []string `json:"support_needs" validate:"dive,support_need"`
}

// UnmarshalJSON accepts the age either as a string or as a number.
func (p *KnowledgeProfile) UnmarshalJSON(data []byte) error {
	type plain KnowledgeProfile
	aux := struct {
		*plain
		Age json.RawMessage `json:"age"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.Age)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return nil
	case raw[0] == '"':
		return json.Unmarshal(raw, &p.Age)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return err
		}
		p.Age = n.String()
		return nil
	}
}

// LearnerProfile holds the stated learning preferences.
type LearnerProfile struct {
	Problematic       string           `json:"problematic"`
	GoalUnderstanding int              `json:"goal_understanding" validate:"min=0,max=10"`
	PrecisionLevel    int              `json:"precision_level" validate:"min=0,max=10"`
	Analogies         int              `json:"analogies" validate:"min=0,max=10"`
	Conciseness       int              `json:"conciseness" validate:"min=0,max=10"`
	LearningMode      int              `json:"learning_mode" validate:"min=0,max=10"`
	ExplanationStyle  ExplanationStyle `json:"explanation_style" validate:"omitempty,oneof=Step-by-step Analogy-driven Big-picture-first Details-first"`
	Interactivity     bool             `json:"interactivity"`
	Tone              Tone             `json:"tone" validate:"omitempty,oneof=Formal Casual"`
	Humor             Humor            `json:"humor" validate:"omitempty,oneof=Playful Serious"`
	Motivation        bool             `json:"motivation"`
	Adaptability      bool             `json:"adaptability"`
}

// Clamp pins a questionnaire scale answer into [ScaleMin, ScaleMax].
func Clamp(v int) int {
	return min(max(v, ScaleMin), ScaleMax)
}

// Normalize trims text answers, clamps every scale and canonicalizes support
// tags to their spelling in SupportNeeds. Unknown tags are kept as given so
// validation can report them.
func (p *KnowledgeProfile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Age = strings.TrimSpace(p.Age)
	p.Background = strings.TrimSpace(p.Background)
	p.FamiliarityKW = strings.TrimSpace(p.FamiliarityKW)
	p.MathEq = Clamp(p.MathEq)
	p.ProgrammingComfort = Clamp(p.ProgrammingComfort)
	p.ConfidenceAsking = Clamp(p.ConfidenceAsking)

	needs := lo.Map(p.SupportNeeds, func(tag string, _ int) string {
		return CanonicalSupportNeed(tag)
	})
	p.SupportNeeds = lo.Filter(needs, func(tag string, _ int) bool {
		return tag != ""
	})
}

// Normalize trims text answers, clamps every scale and canonicalizes the
// categorical answers when they match a known option case-insensitively.
func (p *LearnerProfile) Normalize() {
	p.Problematic = strings.TrimSpace(p.Problematic)
	p.GoalUnderstanding = Clamp(p.GoalUnderstanding)
	p.PrecisionLevel = Clamp(p.PrecisionLevel)
	p.Analogies = Clamp(p.Analogies)
	p.Conciseness = Clamp(p.Conciseness)
	p.LearningMode = Clamp(p.LearningMode)
	p.ExplanationStyle = canonical(p.ExplanationStyle, ExplanationStyles)
	p.Tone = canonical(p.Tone, Tones)
	p.Humor = canonical(p.Humor, Humors)
}

// CanonicalSupportNeed returns the SupportNeeds spelling of tag, or the
// trimmed tag itself when it is not a known subject.
func CanonicalSupportNeed(tag string) string {
	tag = strings.TrimSpace(tag)
	if known, ok := lo.Find(SupportNeeds, func(s string) bool {
		return strings.EqualFold(s, tag)
	}); ok {
		return known
	}
	return tag
}

func canonical[T ~string](v T, options []T) T {
	trimmed := strings.TrimSpace(string(v))
	// the questionnaire offers "Playful/Humorous" and "Serious/Focused"
	if head, _, ok := strings.Cut(trimmed, "/"); ok {
		trimmed = head
	}
	if known, ok := lo.Find(options, func(o T) bool {
		return strings.EqualFold(string(o), trimmed)
	}); ok {
		return known
	}
	return T(strings.TrimSpace(string(v)))
}
