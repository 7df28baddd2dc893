package wizard

import (
	"strings"
	"testing"
)

func controlIDs(v View) []string {
	ids := make([]string, 0, len(v.Controls))
	for _, c := range v.Controls {
		ids = append(ids, c.ID)
	}
	return ids
}

func hasControl(v View, id string) bool {
	for _, c := range v.Controls {
		if c.ID == id {
			return true
		}
	}
	return false
}

func TestRenderStep_ControlsPerStep(t *testing.T) {
	draft := map[string]string{}

	for _, step := range steps {
		v := RenderStep(step, draft)
		if !hasControl(v, ControlCancel) {
			t.Errorf("%v: cancel must always be present, controls %v", step, controlIDs(v))
		}
		if step == StepReview {
			if !hasControl(v, ControlConfirm) || hasControl(v, ControlNext) {
				t.Errorf("review must offer confirm instead of next, controls %v", controlIDs(v))
			}
		} else {
			if hasControl(v, ControlConfirm) {
				t.Errorf("%v: confirm must only appear on review, controls %v", step, controlIDs(v))
			}
			if !hasControl(v, ControlNext) {
				t.Errorf("%v: next missing, controls %v", step, controlIDs(v))
			}
		}
	}
}

func TestRenderStep_BackDisabledOnFirstStepOnly(t *testing.T) {
	for _, step := range steps {
		v := RenderStep(step, nil)
		var back *Control
		for i := range v.Controls {
			if v.Controls[i].ID == ControlBack {
				back = &v.Controls[i]
			}
		}
		if back == nil {
			t.Fatalf("%v: back control missing", step)
		}
		if wantDisabled := step == StepWelcome; back.Disabled != wantDisabled {
			t.Errorf("%v: back disabled = %v, want %v", step, back.Disabled, wantDisabled)
		}
	}
}

func TestRenderStep_ReviewSummarizesDraft(t *testing.T) {
	draft := map[string]string{
		FieldChannelID:   "chan1",
		FieldCategoryID:  "cat1",
		FieldTicketTypes: "support,billing",
	}
	v := RenderStep(StepReview, draft)

	joined := ""
	for _, f := range v.Summary {
		joined += f.Name + "=" + f.Value + ";"
	}
	if !strings.Contains(joined, "<#chan1>") || !strings.Contains(joined, "<#cat1>") {
		t.Fatalf("review summary missing channel refs: %q", joined)
	}
	if !strings.Contains(joined, "support,billing") {
		t.Fatalf("review summary missing topics: %q", joined)
	}

	// Unset optional fields render a placeholder, not an empty string.
	if !strings.Contains(joined, "not set") {
		t.Fatalf("unset log channel should render a placeholder: %q", joined)
	}
}

func TestRenderStep_DoesNotMutateDraft(t *testing.T) {
	draft := map[string]string{FieldChannelID: "chan1"}
	_ = RenderStep(StepReview, draft)
	_ = RenderStep(StepChannels, draft)

	if len(draft) != 1 || draft[FieldChannelID] != "chan1" {
		t.Fatalf("rendering must not touch the draft: %+v", draft)
	}
}
