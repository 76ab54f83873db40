package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/mindmesh-bot/internal/models"
)

var knowledgeLabels = []string{
	"Name", "Age", "Background", "Domain familiarity", "Comfort with mathematics",
	"Programming comfort", "Confidence asking questions", "Support needs",
}

var learnerLabels = []string{
	"Goals and challenges", "Understanding of the goals", "Precision level", "Enjoys stories and analogies",
	"Conciseness", "Learning mode", "Explanation style", "Wants quizzing", "Tone", "Humor",
	"Wants motivational phrasing", "Adapt style over time",
}

func TestDescribeKnowledge(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.KnowledgeProfile
		want    []string
	}{
		{
			name: "full profile",
			profile: &models.KnowledgeProfile{
				Name:               "Alice",
				Age:                "29",
				Background:         "Biology",
				FamiliarityKW:      "genomics",
				MathEq:             7,
				ProgrammingComfort: 8,
				ConfidenceAsking:   2,
				SupportNeeds:       []string{"Statistics", "Programming"},
			},
			want: []string{"Alice", "29", "Biology", "genomics", "7/10", "8/10", "2/10", "Statistics, Programming"},
		},
		{
			name:    "zero value",
			profile: &models.KnowledgeProfile{},
			want:    []string{"Name: not specified", "Comfort with mathematics: 0/10", "Support needs: not specified"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DescribeKnowledge(tt.profile)
			for _, label := range knowledgeLabels {
				assert.Contains(t, got, label+":")
			}
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			assert.Equal(t, got, DescribeKnowledge(tt.profile), "output must be deterministic")
		})
	}
}

func TestDescribeLearner(t *testing.T) {
	p := &models.LearnerProfile{
		Problematic:      "Map the project",
		PrecisionLevel:   9,
		ExplanationStyle: models.DetailsFirst,
		Interactivity:    true,
		Tone:             models.ToneFormal,
		Humor:            models.HumorSerious,
		Adaptability:     true,
	}

	got := DescribeLearner(p)
	for _, label := range learnerLabels {
		assert.Contains(t, got, label)
	}
	assert.Contains(t, got, "Wants quizzing: yes")
	assert.Contains(t, got, "Wants motivational phrasing: no")
	assert.Contains(t, got, "Adapt style over time: yes")
	assert.Contains(t, got, "9/10")
	assert.Contains(t, got, "Details-first")
	assert.Contains(t, got, "Formal")
}

func TestDescribeAbsentProfiles(t *testing.T) {
	assert.Equal(t, "No knowledge profile available.", DescribeKnowledge(nil))
	assert.Equal(t, "No learning profile available.", DescribeLearner(nil))
}

func TestBuildSystemPrompt(t *testing.T) {
	kp := &models.KnowledgeProfile{Name: "Estefania", MathEq: 7, ProgrammingComfort: 8}
	lp := &models.LearnerProfile{Tone: models.ToneCasual, Humor: models.HumorPlayful}

	msg := BuildSystemPrompt("estefania", DescribeKnowledge(kp), DescribeLearner(lp))

	assert.Equal(t, models.RoleSystem, msg.Role)
	assert.Contains(t, msg.Content, "estefania")
	assert.Contains(t, msg.Content, "7")
	assert.Contains(t, msg.Content, "Casual")
	assert.Contains(t, msg.Content, "Playful")
	assert.Contains(t, msg.Content, DescribeKnowledge(kp))
	assert.Contains(t, msg.Content, DescribeLearner(lp))
}

func TestBuildSystemPromptWithoutProfiles(t *testing.T) {
	msg := BuildSystemPrompt("newuser", DescribeKnowledge(nil), DescribeLearner(nil))
	assert.Contains(t, msg.Content, "No knowledge profile available.")
	assert.Contains(t, msg.Content, "No learning profile available.")
}

func TestValidateUsername(t *testing.T) {
	require.NoError(t, ValidateUsername("alice"))
	require.NoError(t, ValidateUsername("Émile_42"))

	for _, bad := range []string{"", "two words", string(make([]byte, 65))} {
		err := ValidateUsername(bad)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "username %q", bad)
		assert.Contains(t, verr.Fields, "username")
	}
}

func TestPrepareKnowledge(t *testing.T) {
	p := &models.KnowledgeProfile{MathEq: 15, SupportNeeds: []string{"physics"}}
	require.NoError(t, PrepareKnowledge(p))
	assert.Equal(t, 10, p.MathEq)
	assert.Equal(t, []string{"Physics"}, p.SupportNeeds)

	p = &models.KnowledgeProfile{SupportNeeds: []string{"Physics", "Cooking"}}
	err := PrepareKnowledge(p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["support_needs"], "Cooking")
}

func TestPrepareLearner(t *testing.T) {
	p := &models.LearnerProfile{Tone: "casual", Humor: "serious/focused", ExplanationStyle: "step-by-step"}
	require.NoError(t, PrepareLearner(p))
	assert.Equal(t, models.ToneCasual, p.Tone)
	assert.Equal(t, models.HumorSerious, p.Humor)
	assert.Equal(t, models.StepByStep, p.ExplanationStyle)

	p = &models.LearnerProfile{Tone: "Sarcastic", ExplanationStyle: "Random"}
	err := PrepareLearner(p)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tone")
	assert.Contains(t, verr.Fields, "explanation_style")
}

func TestParseKnowledgeForm(t *testing.T) {
	p, err := ParseKnowledgeForm(KnowledgeFormTemplate)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "29", p.Age)
	assert.Equal(t, "Biology, 5 years", p.Background)
	assert.Equal(t, 7, p.MathEq)
	assert.Equal(t, 4, p.ProgrammingComfort)
	assert.Equal(t, 6, p.ConfidenceAsking)
	assert.Equal(t, []string{"Statistics", "Programming"}, p.SupportNeeds)
}

func TestParseKnowledgeFormErrors(t *testing.T) {
	_, err := ParseKnowledgeForm("math: lots\nfavourite colour: blue\nsupport: Knitting")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "math_eq")
	assert.Contains(t, verr.Fields, "favourite_colour")
	assert.Contains(t, verr.Fields, "support_needs")
}

func TestParseLearnerForm(t *testing.T) {
	p, err := ParseLearnerForm(LearnerFormTemplate)
	require.NoError(t, err)
	assert.Equal(t, 3, p.GoalUnderstanding)
	assert.Equal(t, models.StepByStep, p.ExplanationStyle)
	assert.True(t, p.Interactivity)
	assert.Equal(t, models.ToneCasual, p.Tone)
	assert.Equal(t, models.HumorPlayful, p.Humor)
	assert.True(t, p.Motivation)
	assert.True(t, p.Adaptability)
}

func TestParseLearnerFormClampsScales(t *testing.T) {
	p, err := ParseLearnerForm("precision = 14\nquiz: no")
	require.NoError(t, err)
	assert.Equal(t, 10, p.PrecisionLevel)
	assert.False(t, p.Interactivity)
}

func TestParseLearnerFormRejectsBadYesNo(t *testing.T) {
	_, err := ParseLearnerForm("quiz: maybe")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "interactivity")
}
