package auth

import "context"

type contextKey struct{}

// AuthContext identifies the signed-in user. It is passed explicitly to every
// roster operation; the request context only carries it from middleware to
// handlers.
type AuthContext struct {
	UserID    string
	Username  string
	SessionID int64
}

// Authenticated reports whether ac names a user.
func (ac AuthContext) Authenticated() bool {
	return ac.UserID != ""
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}
