package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/realtime"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const wsProfileKey = "ws_profile"

// RealtimeHandler upgrades authenticated requests to websocket sessions
// and pumps frames between the socket and the hub.
type RealtimeHandler struct {
	hub      *realtime.Hub
	verifier *auth.Verifier
	logger   *zap.Logger
}

// NewRealtimeHandler constructs handler.
func NewRealtimeHandler(hub *realtime.Hub, verifier *auth.Verifier, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, verifier: verifier, logger: logger}
}

// Upgrade authenticates the connect request before the protocol switch.
// The token rides a query parameter because browsers cannot set headers on
// websocket requests.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		return apperrors.NewUnauthorized("token required")
	}
	profile, err := h.verifier.VerifyToken(c.Context(), token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	c.Locals(wsProfileKey, profile)
	return c.Next()
}

// Handle runs one websocket session: register with the hub, drain the
// outbound queue onto the socket, and feed inbound frames to the hub until
// either side goes away.
func (h *RealtimeHandler) Handle() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		profile, ok := conn.Locals(wsProfileKey).(*domain.Profile)
		if !ok {
			_ = conn.Close()
			return
		}

		ctx := context.Background()
		client := h.hub.Register(ctx, profile)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for envelope := range client.Outbound() {
				if err := conn.WriteJSON(envelope); err != nil {
					h.logger.Debug("websocket write failed",
						zap.String("connection_id", client.ID),
						zap.Error(err))
					return
				}
			}
		}()

		for {
			var msg realtime.ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				break
			}
			h.hub.HandleMessage(ctx, client, msg)
		}

		// Unregister closes the outbound queue, which stops the writer
		h.hub.Unregister(ctx, client)
		<-writerDone
		_ = conn.Close()
	})
}
