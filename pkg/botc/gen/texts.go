package gen

import (
	tmpl "github.com/botforge/botc/pkg/botc/template"
)

// Names of the built-in message templates a caller may override per
// compilation. Placeholders use ${var} syntax and are expanded at emission
// time with emission-constant values, so overrides never break determinism.
const (
	TextRetryTooShort   = "retry_too_short"   // vars: min
	TextRetryTooLong    = "retry_too_long"    // vars: max
	TextRetryEmail      = "retry_email"       // no vars
	TextRetryPhone      = "retry_phone"       // no vars
	TextRetryNumber     = "retry_number"      // no vars
	TextChooseOption    = "choose_option"     // vars: options
	TextDoneButton      = "done_button"       // no vars
	TextNothingSelected = "nothing_selected"  // no vars
	TextAdminOnly       = "admin_only"        // no vars
	TextAdminReplyUsage = "admin_reply_usage" // vars: action
	TextActionDone      = "action_done"       // vars: action
)

// defaultTexts are the built-in templates, used when no override is given.
var defaultTexts = map[string]string{
	TextRetryTooShort:   "Please enter at least ${min} characters.",
	TextRetryTooLong:    "Please enter at most ${max} characters.",
	TextRetryEmail:      "That does not look like an email address. Please try again.",
	TextRetryPhone:      "That does not look like a phone number. Please try again.",
	TextRetryNumber:     "Please enter a number.",
	TextChooseOption:    "Please choose one of the options: ${options}",
	TextDoneButton:      "Done",
	TextNothingSelected: "Nothing selected yet.",
	TextAdminOnly:       "This command is available to administrators only.",
	TextAdminReplyUsage: "Reply to a message from the user you want to ${action}.",
	TextActionDone:      "Done: ${action}.",
}

// textSet resolves template names against overrides, then built-ins.
type textSet struct {
	overrides map[string]string
}

// get returns the expanded template text. Unknown names resolve to the empty
// string, which emitters treat as "use no text".
func (t textSet) get(name string, vars map[string]any) string {
	s, ok := t.overrides[name]
	if !ok {
		s = defaultTexts[name]
	}
	return tmpl.Expand(s, vars)
}
