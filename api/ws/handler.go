package ws

import (
	"context"
	"net/http"

	gws "github.com/gorilla/websocket"

	"chatrelay/internal/websocket"
	"chatrelay/pkg/logger"
	"chatrelay/service"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the HTTP request and runs the connection's event
// loop until the client disconnects.
func HandleWebSocket(ctx context.Context, chat service.ChatService, logg logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logg.Errorf("upgrade error: %v", err)
			return
		}

		client := websocket.NewConnection(conn, chat, logg)
		logg.Infof("new connection %s from %s", client.ID(), conn.RemoteAddr())

		client.Run(ctx)
	}
}
