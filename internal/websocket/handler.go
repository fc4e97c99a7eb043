package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/familyfeed/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams that user's
// change notifications until the connection closes. originPatterns lists the
// hosts allowed to connect cross-origin; empty means same-origin only.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok || !ac.Authenticated() {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err, "owner", ac.UserID)
			return
		}

		logger.Debug("websocket connected", "owner", ac.UserID)
		NewClient(hub, conn, ac.UserID).Run(r.Context())
		logger.Debug("websocket disconnected", "owner", ac.UserID)
	}
}
