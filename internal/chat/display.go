package chat

// Display is the rendering side of a session. The session calls it
// synchronously, in event order, while holding its own lock: implementations
// must not call back into the session.
type Display interface {
	// AppendMessage adds one entry to the log. text is already escaped.
	AppendMessage(text string, sender Sender)
	// ClearLog removes every rendered entry.
	ClearLog()
	// ActiveBotChanged moves the active marker. hadPrev is false on the
	// first activation.
	ActiveBotChanged(prev BotID, hadPrev bool, next BotID)
	// LockChanged reports whether sending is currently blocked.
	LockChanged(locked bool)
}

type nopDisplay struct{}

func (nopDisplay) AppendMessage(string, Sender)        {}
func (nopDisplay) ClearLog()                           {}
func (nopDisplay) ActiveBotChanged(BotID, bool, BotID) {}
func (nopDisplay) LockChanged(bool)                    {}
