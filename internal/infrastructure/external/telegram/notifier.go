package telegram

import "context"

// Notifier adapts the Telegram client for reminder delivery.
// The reminder registry only needs to push plain text to a chat.
type Notifier struct {
	client *Client
}

// NewNotifier creates a reminder notifier backed by the given client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// SendText delivers a plain text message to the chat.
func (n *Notifier) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := n.client.SendText(ctx, chatID, text)
	return err
}
