package handlers

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/finware/notify/internal/middleware"
	"github.com/finware/notify/pkg/errors"
	"github.com/finware/notify/pkg/logger"
	"github.com/finware/notify/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Allow same-origin requests and explicit localhost development.
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		originHost := hostWithoutPort(origin)
		requestHost := hostWithoutPort("//" + r.Host)
		if originHost != "" && originHost == requestHost {
			return true
		}
		return isLoopbackHost(originHost)
	},
}

// Stream upgrades the connection to a websocket and pushes count frames,
// starting with the snapshot frame and then one frame per live notification.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID <= 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	frames, err := h.live.Open(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error; just release the stream.
		cancel()
		for range frames {
		}
		return
	}
	defer conn.Close()

	log := logger.WithModule("handlers.stream")

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Read loop exists only to surface disconnects and pong frames.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				log.Debug("websocket write failed",
					zap.Int64("user_id", userID),
					zap.Error(err),
				)
				return
			}
		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func hostWithoutPort(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := parsed.Host
	if host == "" {
		host = parsed.Path
	}
	if h, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		return strings.ToLower(h)
	}
	return strings.ToLower(host)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
