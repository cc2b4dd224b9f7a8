package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/wagate/pkg/constant"
	"github.com/wagate/pkg/domains/session"
	"github.com/wagate/pkg/realtime"
	"github.com/wagate/pkg/state"
)

func RealtimeRoutes(r *gin.RouterGroup, m session.Manager, hub *realtime.Hub, authn gin.HandlerFunc) {
	r.GET("/ws", authn, subscribe(m, hub))
}

// subscribe upgrades to a websocket on the caller's user channel and, when
// ?session= is given, on that session's channel.
func subscribe(m session.Manager, hub *realtime.Hub) func(c *gin.Context) {
	return func(c *gin.Context) {
		owner := state.CurrentUser(c)
		channels := []string{realtime.UserChannel(owner)}

		if id := c.Query("session"); id != "" {
			info, err := m.Get(c, id)
			if err != nil {
				respondError(c, err)
				return
			}
			if info.OwnerID != owner {
				c.JSON(404, gin.H{"error": constant.SESSION_NOT_FOUND})
				return
			}
			channels = []string{realtime.SessionChannel(id)}
		}

		if err := hub.Serve(c.Writer, c.Request, channels...); err != nil {
			// the upgrader has already written the HTTP error
			log.Warn().Err(err).Msg(constant.REALTIME_UPGRADE_ERR)
		}
	}
}
