// Package validate normalizes raw project input before it reaches a store.
// All functions are pure.
package validate

import (
	"fmt"
	"strings"

	"portfolio-complete/core"
)

type (
	// ProjectInput is the raw form input for creating a project.
	ProjectInput struct {
		Title       string
		Category    string
		Description string
		Tech        string // comma-separated
		URL         string
	}

	// PatchInput is the raw form input for a partial update. A nil field was
	// not supplied by the client and must be left unchanged.
	PatchInput struct {
		Title       *string
		Category    *string
		Description *string
		Tech        *string
		URL         *string
	}
)

// Project trims all text fields, splits the tech list and rejects the input
// if any required field is empty after trimming.
func Project(in ProjectInput) (core.ProjectFields, error) {
	fields := core.ProjectFields{
		Title:       strings.TrimSpace(in.Title),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Tech:        SplitTech(in.Tech),
		URL:         strings.TrimSpace(in.URL),
	}

	var missing []string
	if fields.Title == "" {
		missing = append(missing, "title")
	}
	if fields.Category == "" {
		missing = append(missing, "category")
	}
	if fields.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return core.ProjectFields{}, fmt.Errorf("%w: missing %s", core.ErrValidation, strings.Join(missing, ", "))
	}
	return fields, nil
}

// ProjectPatch normalizes the supplied fields of a partial update. Supplying
// an empty value for a required field is rejected; fields that were not
// supplied stay nil.
func ProjectPatch(in PatchInput) (core.ProjectPatch, error) {
	var patch core.ProjectPatch

	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" {
			return core.ProjectPatch{}, fmt.Errorf("%w: title must not be empty", core.ErrValidation)
		}
		patch.Title = &v
	}
	if in.Category != nil {
		v := strings.TrimSpace(*in.Category)
		if v == "" {
			return core.ProjectPatch{}, fmt.Errorf("%w: category must not be empty", core.ErrValidation)
		}
		patch.Category = &v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return core.ProjectPatch{}, fmt.Errorf("%w: description must not be empty", core.ErrValidation)
		}
		patch.Description = &v
	}
	if in.Tech != nil {
		patch.Tech = SplitTech(*in.Tech)
	}
	if in.URL != nil {
		v := strings.TrimSpace(*in.URL)
		patch.URL = &v
	}
	return patch, nil
}

// SplitTech splits a comma-separated tag list, trims each token and drops
// empty ones. The result is never nil.
func SplitTech(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
