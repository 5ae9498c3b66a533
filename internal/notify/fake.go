package notify

import "context"

// Fake is a hand-rolled Notifier test double.
type Fake struct {
	Messages []string
	SendErr  error
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Send(_ context.Context, message string) error {
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Messages = append(f.Messages, message)
	return nil
}
