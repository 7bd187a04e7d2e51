package identity

import "context"

// Notifier is the outbound email collaborator. Every call is
// fire-and-forget from the core's perspective: delivery failure is logged
// by the caller and never fails the triggering operation.
type Notifier interface {
	NotifyVerification(ctx context.Context, user *User, token string) error
	NotifyPasswordReset(ctx context.Context, user *User, token string) error
	NotifyPasswordChanged(ctx context.Context, user *User) error
	NotifyNewLogin(ctx context.Context, user *User, device, ip string) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyVerification(context.Context, *User, string) error { return nil }
func (noopNotifier) NotifyPasswordReset(context.Context, *User, string) error {
	return nil
}
func (noopNotifier) NotifyPasswordChanged(context.Context, *User) error { return nil }
func (noopNotifier) NotifyNewLogin(context.Context, *User, string, string) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
