/*
Package handler provides the HTTP handler function for WebSocket connection upgrading
and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, and initiating the connection's message loops.
Identity is established afterwards over the socket itself, by the login envelope.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"clusterchat/internal/app/gateway"
	"clusterchat/internal/pkg/errs"
	"clusterchat/internal/pkg/limiter"
	"clusterchat/internal/pkg/logx"
	"clusterchat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			rateLimitErr := errs.NewError(errs.ErrRateLimitExceeded)
			resp.RespondError(w, r, rateLimitErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := gateway.NewClient(conn, deps.Service)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", client.ID(), "peer", client.PeerAddr())

		client.ReadPump(r.Context())
	}
}
