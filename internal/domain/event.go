package domain

// InboundEvent is one update delivered by the messaging platform, already
// reduced to what the pipeline needs.
type InboundEvent struct {
	ConversationID string
	EventID        string
	Text           string
	VoiceFileID    string
	// CallbackData is set when the user pressed an inline menu button.
	CallbackData string
}

func (e InboundEvent) IsVoice() bool {
	return e.VoiceFileID != ""
}

// MenuOption is one inline keyboard button.
type MenuOption struct {
	Label string
	Data  string
}
