package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-complete/core"
)

func TestProject_TrimsAndSplits(t *testing.T) {
	fields, err := Project(ProjectInput{
		Title:       "  Portfolio A  ",
		Category:    "Web",
		Description: " desc ",
		Tech:        "Go, React",
		URL:         " https://example.com ",
	})
	require.NoError(t, err)

	assert.Equal(t, "Portfolio A", fields.Title)
	assert.Equal(t, "Web", fields.Category)
	assert.Equal(t, "desc", fields.Description)
	assert.Equal(t, []string{"Go", "React"}, fields.Tech)
	assert.Equal(t, "https://example.com", fields.URL)
}

func TestProject_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		input ProjectInput
	}{
		{"empty title", ProjectInput{Title: "", Category: "Web", Description: "desc"}},
		{"whitespace title", ProjectInput{Title: "   ", Category: "Web", Description: "desc"}},
		{"empty category", ProjectInput{Title: "A", Category: "", Description: "desc"}},
		{"empty description", ProjectInput{Title: "A", Category: "Web", Description: " "}},
		{"all empty", ProjectInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(tt.input)
			require.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestProject_TechOptional(t *testing.T) {
	fields, err := Project(ProjectInput{Title: "A", Category: "Web", Description: "desc"})
	require.NoError(t, err)
	assert.Empty(t, fields.Tech)
	assert.NotNil(t, fields.Tech)
	assert.Empty(t, fields.URL)
}

func TestSplitTech(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"Go, React", []string{"Go", "React"}},
		{"Go,,React,", []string{"Go", "React"}},
		{" , , ", []string{}},
		{"", []string{}},
		{"solo", []string{"solo"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitTech(tt.raw), "input %q", tt.raw)
	}
}

func TestProjectPatch_OnlySuppliedFields(t *testing.T) {
	title := " New Title "
	tech := "Go,Vue"
	patch, err := ProjectPatch(PatchInput{Title: &title, Tech: &tech})
	require.NoError(t, err)

	require.NotNil(t, patch.Title)
	assert.Equal(t, "New Title", *patch.Title)
	assert.Equal(t, []string{"Go", "Vue"}, patch.Tech)
	assert.Nil(t, patch.Category)
	assert.Nil(t, patch.Description)
	assert.Nil(t, patch.URL)
}

func TestProjectPatch_RejectsEmptyRequiredField(t *testing.T) {
	empty := "  "
	_, err := ProjectPatch(PatchInput{Title: &empty})
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = ProjectPatch(PatchInput{Description: &empty})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestProjectPatch_EmptyURLAllowed(t *testing.T) {
	empty := ""
	patch, err := ProjectPatch(PatchInput{URL: &empty})
	require.NoError(t, err)
	require.NotNil(t, patch.URL)
	assert.Equal(t, "", *patch.URL)
}
