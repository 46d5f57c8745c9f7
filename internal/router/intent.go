package router

// Intent is one of the fixed command classes the router can dispatch to.
type Intent int

const (
	Unknown Intent = iota
	Schedule
	Notes
	Present
	Message
	Read
	Suggest
)

// categories is the fixed declaration order. Ties in scoring are broken by
// position in this slice: the earlier category wins.
var categories = []Intent{Schedule, Notes, Present, Message, Read, Suggest}

// triggers are the substrings that identify each category, both in the
// utterance and in classifier label names.
var triggers = map[Intent][]string{
	Schedule: {"schedule", "meeting", "set up", "plan"},
	Notes:    {"take notes", "record", "minutes", "start taking", "stop taking"},
	Present:  {"present", "slides", "show", "display"},
	Message:  {"send", "tell", "call", "say", "remind"},
	Read:     {"read", "what’s in", "what's in", "summarize", "open"},
	Suggest:  {"suggest", "what do you think", "recommend", "idea"},
}

// Categories returns the dispatchable intents in declaration order.
func Categories() []Intent {
	out := make([]Intent, len(categories))
	copy(out, categories)
	return out
}

// Triggers returns a copy of the trigger substrings for intent.
func Triggers(intent Intent) []string {
	t := triggers[intent]
	out := make([]string, len(t))
	copy(out, t)
	return out
}

func (i Intent) String() string {
	switch i {
	case Schedule:
		return "schedule"
	case Notes:
		return "notes"
	case Present:
		return "present"
	case Message:
		return "message"
	case Read:
		return "read"
	case Suggest:
		return "suggest"
	default:
		return "unknown"
	}
}

// ParseIntent maps a name produced by String back to its Intent.
func ParseIntent(s string) Intent {
	for _, c := range categories {
		if c.String() == s {
			return c
		}
	}
	return Unknown
}
