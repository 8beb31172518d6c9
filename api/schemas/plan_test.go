package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestActionPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    ActionPlan
		wantErr string
	}{
		{
			name: "valid click",
			plan: ActionPlan{Action: ActionClick, ElementID: intPtr(3)},
		},
		{
			name:    "click missing element id",
			plan:    ActionPlan{Action: ActionClick},
			wantErr: "element_id is required",
		},
		{
			name:    "click with text payload",
			plan:    ActionPlan{Action: ActionClick, ElementID: intPtr(3), Text: strPtr("hi")},
			wantErr: "text_to_type must be absent",
		},
		{
			name: "valid type with target",
			plan: ActionPlan{Action: ActionType, ElementID: intPtr(1), Text: strPtr("hello")},
		},
		{
			name: "valid type without target",
			plan: ActionPlan{Action: ActionType, Text: strPtr("")},
		},
		{
			name:    "type missing text",
			plan:    ActionPlan{Action: ActionType, ElementID: intPtr(1)},
			wantErr: "text_to_type is required",
		},
		{
			name: "valid press_key",
			plan: ActionPlan{Action: ActionPressKey, Key: "Cmd+Space"},
		},
		{
			name:    "press_key missing descriptor",
			plan:    ActionPlan{Action: ActionPressKey},
			wantErr: "key_info is required",
		},
		{
			name:    "press_key with element id",
			plan:    ActionPlan{Action: ActionPressKey, Key: "Enter", ElementID: intPtr(0)},
			wantErr: "element_id must be absent",
		},
		{
			name: "valid scroll",
			plan: ActionPlan{Action: ActionScroll, ScrollDirection: ScrollDown},
		},
		{
			name:    "scroll missing direction",
			plan:    ActionPlan{Action: ActionScroll},
			wantErr: "scroll_direction",
		},
		{
			name:    "scroll bogus direction",
			plan:    ActionPlan{Action: ActionScroll, ScrollDirection: "sideways"},
			wantErr: "scroll_direction",
		},
		{
			name:    "scroll with key descriptor",
			plan:    ActionPlan{Action: ActionScroll, ScrollDirection: ScrollUp, Key: "Enter"},
			wantErr: "key_info must be absent",
		},
		{
			name:    "action outside the closed set",
			plan:    ActionPlan{Action: "hover"},
			wantErr: "not one of",
		},
		{
			name: "goal complete relaxes payload requirements",
			plan: ActionPlan{Action: ActionClick, IsGoalComplete: true},
		},
		{
			name:    "goal complete still rejects unknown kind",
			plan:    ActionPlan{Action: "hover", IsGoalComplete: true},
			wantErr: "not one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestActionPlanDescribe(t *testing.T) {
	tests := []struct {
		name string
		plan ActionPlan
		want string
	}{
		{"click", ActionPlan{Action: ActionClick, ElementID: intPtr(3)}, "click element 3"},
		{"type targeted", ActionPlan{Action: ActionType, ElementID: intPtr(1), Text: strPtr("user")}, `type "user" into element 1`},
		{"press", ActionPlan{Action: ActionPressKey, Key: "Enter"}, "press Enter"},
		{"scroll", ActionPlan{Action: ActionScroll, ScrollDirection: ScrollDown}, "scroll down"},
		{"goal complete", ActionPlan{Action: ActionClick, IsGoalComplete: true}, "goal reported complete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.plan.Describe())
		})
	}
}
