package ws

import (
	"context"
	"net/http"

	"chatrelay/pkg/logger"
	"chatrelay/service"
)

type WSConfig struct {
	ChatService service.ChatService
	RootCtx     context.Context
}

func SetupWebSocketRoutes(cfg WSConfig) http.Handler {
	mux := http.NewServeMux()
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	mux.HandleFunc("/ws", HandleWebSocket(cfg.RootCtx, cfg.ChatService, log))
	return mux
}
