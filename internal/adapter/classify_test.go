package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hsebcm/calendar-sync/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text      string
		want      model.Category
		defaulted bool
	}{
		{"ocean conservation", model.CategoryEnvironment, false},
		{"OCEAN Conservation", model.CategoryEnvironment, false},
		{"Mental health awareness", model.CategoryHealth, false},
		{"Road accident prevention", model.CategorySafety, false},
		{"Environmental protection", model.CategoryEnvironment, false},
		{"Renewable energy transition", model.CategoryEnergy, false},
		{"Disaster risk reduction", model.CategoryBCM, false},
		{"Business continuity awareness", model.CategoryBCM, false},
		{"Cultural heritage", model.CategoryHealth, true},
		{"", model.CategoryHealth, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, defaulted := Classify(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.defaulted, defaulted)
		})
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// Matches both health and environment keywords; health is checked first.
	got, _ := Classify("health impacts of air pollution")
	assert.Equal(t, model.CategoryHealth, got)

	// Safety precedes energy.
	got, _ = Classify("electrical fire safety")
	assert.Equal(t, model.CategorySafety, got)
}
