package ports

import "context"

// UserInfo is the minimal profile data command adapters render into replies.
type UserInfo struct {
	ID   string
	Name string
}

// ChatClient is the outbound chat-platform surface. The engine never calls
// it; only command adapters do, translating typed results into reply text.
type ChatClient interface {
	// SendMessage delivers text to a recipient (user or thread).
	SendMessage(ctx context.Context, recipientID, text string) error

	// GetUserInfo resolves a participant ID to profile data.
	GetUserInfo(ctx context.Context, id string) (UserInfo, error)
}
