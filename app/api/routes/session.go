package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wagate/pkg/constant"
	"github.com/wagate/pkg/domains/session"
	"github.com/wagate/pkg/dtos"
	"github.com/wagate/pkg/state"
)

const ctxSession = "session"

func SessionRoutes(r *gin.RouterGroup, m session.Manager, authn gin.HandlerFunc) {
	authGroup := r.Group("", authn)
	{
		authGroup.POST("", createSession(m))
		authGroup.GET("", listSessions(m))

		owned := authGroup.Group("/:id", ownedSession(m))
		owned.GET("", getSession())
		owned.GET("/status", sessionStatus(m))
		owned.GET("/qr", sessionQR(m))
		owned.POST("/restart", restartSession(m))
		owned.DELETE("", destroySession(m))
		owned.POST("/messages", sendText(m))
		owned.GET("/contacts", contacts(m))
		owned.GET("/channels", channels(m))
	}
}

// ownedSession loads :id and hides sessions of other users behind a 404.
func ownedSession(m session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := m.Get(c, c.Param("id"))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if info.OwnerID != state.CurrentUser(c) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": constant.SESSION_NOT_FOUND})
			return
		}
		c.Set(ctxSession, info)
		c.Next()
	}
}

func createSession(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req dtos.SessionCreateDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		s, err := m.Create(c, req.ID, state.CurrentUser(c), req.Config)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(201, gin.H{
			"message": constant.SESSION_CREATED,
			"data":    s.Snapshot(),
		})
	}
}

func listSessions(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		list, err := m.List(c, state.CurrentUser(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"data": list})
	}
}

func getSession() func(c *gin.Context) {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"data": c.MustGet(ctxSession)})
	}
}

func sessionStatus(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		st, err := m.Status(c, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"data": dtos.SessionStatusDTO{SessionID: c.Param("id"), Status: string(st)}})
	}
}

func sessionQR(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		id := c.Param("id")
		qr, err := m.QR(c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if qr == "" {
			c.JSON(404, gin.H{"error": constant.QR_NOT_AVAILABLE})
			return
		}
		st, _ := m.Status(c, id)
		c.JSON(200, gin.H{"data": dtos.QRCodeDTO{SessionID: id, Status: string(st), QRCode: qr}})
	}
}

func restartSession(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		s, err := m.Restart(c, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{
			"message": constant.SESSION_RESTARTED,
			"data":    s.Snapshot(),
		})
	}
}

func destroySession(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req dtos.SessionDestroyDTO
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
				return
			}
		}
		logout := req.Logout || c.Query("logout") == "true"
		if err := m.Destroy(c, c.Param("id"), logout); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"message": constant.SESSION_DESTROYED})
	}
}

func sendText(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req dtos.SendTextDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		sent, err := m.SendText(c, c.Param("id"), req.To, req.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{
			"message": constant.MESSAGE_SENT,
			"data":    sent,
		})
	}
}

func contacts(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		list, err := m.Contacts(c, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{
			"message": constant.CONTACTS_RETRIEVED,
			"data":    list,
		})
	}
}

func channels(m session.Manager) func(c *gin.Context) {
	return func(c *gin.Context) {
		list, err := m.Channels(c, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"data": list})
	}
}
