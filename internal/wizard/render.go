// This file renders a wizard step into a plain view model. Keeping the
// renderer free of gateway builder types lets step rendering be tested
// without a live connection; the handler layer translates a View into
// embeds and message components.
package wizard

import (
	"fmt"
	"strings"
)

// Control styles understood by the handler layer.
const (
	StylePrimary   = "primary"
	StyleSecondary = "secondary"
	StyleSuccess   = "success"
	StyleDanger    = "danger"
)

// Navigation control ids. The handler layer namespaces them into custom ids.
const (
	ControlBack    = "back"
	ControlNext    = "next"
	ControlConfirm = "confirm"
	ControlCancel  = "cancel"
)

// Control is one interactive element of a rendered step.
type Control struct {
	ID       string
	Label    string
	Style    string
	Disabled bool
}

// FieldSummary is one draft field shown on a step.
type FieldSummary struct {
	Name  string
	Value string // display value; "not set" placeholders are the caller's concern
}

// View is the gateway-agnostic rendering of one wizard step.
type View struct {
	Title       string
	Description string
	Summary     []FieldSummary
	Controls    []Control
	// Notice carries an inline validation or error message, if any.
	Notice string
}

// RenderStep builds the view for a step over the current draft. It is a
// pure function of its inputs.
func RenderStep(step Step, draft map[string]string) View {
	v := View{
		Title: fmt.Sprintf("Ticket Setup — %s", titleFor(step)),
	}

	switch step {
	case StepWelcome:
		v.Description = "This wizard sets up the ticket system for your server: " +
			"where the panel lives, which category holds ticket channels, and " +
			"what topics members can pick. Use the buttons to move between steps."
	case StepChannels:
		v.Description = "Pick the channel the ticket panel will be posted in."
		v.Summary = append(v.Summary, FieldSummary{Name: "Panel channel", Value: channelRef(draft[FieldChannelID])})
	case StepTicketTypes:
		v.Description = "Pick the category new ticket channels are created under, " +
			"and optionally the topics members can choose from."
		v.Summary = append(v.Summary,
			FieldSummary{Name: "Ticket category", Value: channelRef(draft[FieldCategoryID])},
			FieldSummary{Name: "Topics", Value: orDefault(draft[FieldTicketTypes], "support")},
		)
	case StepAdvanced:
		v.Description = "Optional extras. A log channel receives a summary embed when a ticket closes."
		v.Summary = append(v.Summary, FieldSummary{Name: "Log channel", Value: channelRef(draft[FieldLogChannelID])})
	case StepReview:
		v.Description = "Review the configuration below, then confirm to save it."
		v.Summary = append(v.Summary,
			FieldSummary{Name: "Panel channel", Value: channelRef(draft[FieldChannelID])},
			FieldSummary{Name: "Ticket category", Value: channelRef(draft[FieldCategoryID])},
			FieldSummary{Name: "Topics", Value: orDefault(draft[FieldTicketTypes], "support")},
			FieldSummary{Name: "Log channel", Value: channelRef(draft[FieldLogChannelID])},
		)
	}

	v.Controls = controlsFor(step)
	return v
}

// controlsFor returns the navigation controls for a step: back on anything
// after the first step, next until review, confirm only on review, cancel
// everywhere.
func controlsFor(step Step) []Control {
	var out []Control
	idx := stepIndex(step)
	out = append(out, Control{
		ID:       ControlBack,
		Label:    "Back",
		Style:    StyleSecondary,
		Disabled: idx <= 0,
	})
	if step == StepReview {
		out = append(out, Control{ID: ControlConfirm, Label: "Confirm", Style: StyleSuccess})
	} else {
		out = append(out, Control{ID: ControlNext, Label: "Next", Style: StylePrimary})
	}
	out = append(out, Control{ID: ControlCancel, Label: "Cancel", Style: StyleDanger})
	return out
}

// titleFor maps a step to its heading.
func titleFor(step Step) string {
	s := step.String()
	if s == "" {
		return s
	}
	// "ticket types" -> "Ticket Types"
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// channelRef renders a channel id as a mention, or a placeholder when the
// field is unset.
func channelRef(id string) string {
	if id == "" {
		return "not set"
	}
	return fmt.Sprintf("<#%s>", id)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
