package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wagate/pkg/constant"
	"github.com/wagate/pkg/domains/session"
	"github.com/wagate/pkg/domains/webhook"
	"github.com/wagate/pkg/dtos"
	"github.com/wagate/pkg/entities"
)

// WebhookRoutes mounts under /sessions/:id/webhooks.
func WebhookRoutes(r *gin.RouterGroup, m session.Manager, s webhook.Service, authn gin.HandlerFunc) {
	authGroup := r.Group("", authn, ownedSession(m))
	{
		authGroup.POST("", createWebhook(s))
		authGroup.GET("", listWebhooks(s))
		authGroup.GET("/:webhookId", getWebhook(s))
		authGroup.PUT("/:webhookId", updateWebhook(s))
		authGroup.DELETE("/:webhookId", deleteWebhook(s))
		authGroup.GET("/:webhookId/logs", webhookLogs(s))
		authGroup.POST("/:webhookId/test", testWebhook(s))
	}
}

func createWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req dtos.WebhookCreateDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		hook, err := s.Create(c, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, gin.H{
			"message": constant.ADDED,
			"data":    webhook.ToDTO(hook),
		})
	}
}

func listWebhooks(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		hooks, err := s.List(c, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		out := make([]dtos.WebhookDTO, 0, len(hooks))
		for _, h := range hooks {
			out = append(out, webhook.ToDTO(h))
		}
		c.JSON(200, gin.H{"data": out})
	}
}

func getWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		hook, err := s.Get(c, c.Param("id"), c.Param("webhookId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"data": webhook.ToDTO(hook)})
	}
}

func updateWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		var req dtos.WebhookUpdateDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_REQUEST})
			return
		}

		hook, err := s.Update(c, c.Param("id"), c.Param("webhookId"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{
			"message": constant.UPDATED,
			"data":    webhook.ToDTO(hook),
		})
	}
}

func deleteWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		if err := s.Delete(c, c.Param("id"), c.Param("webhookId")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"message": constant.DELETED})
	}
}

func webhookLogs(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil {
			c.JSON(400, gin.H{"error": constant.INVALID_PAGE_NUMBER})
			return
		}

		logs, totalPages, err := s.Logs(c, c.Param("id"), c.Param("webhookId"), page)
		if err != nil {
			if err.Error() == constant.INVALID_PAGE_NUMBER || err.Error() == constant.PAGE_NUMBER_OUT_OF_RANGE {
				c.JSON(400, gin.H{"error": err.Error()})
				return
			}
			respondError(c, err)
			return
		}
		if logs == nil {
			logs = []entities.WebhookLog{}
		}
		c.JSON(200, gin.H{
			"data":        logs,
			"page":        page,
			"total_pages": totalPages,
		})
	}
}

func testWebhook(s webhook.Service) func(c *gin.Context) {
	return func(c *gin.Context) {
		res, err := s.Test(c, c.Param("id"), c.Param("webhookId"))
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if !res.Delivered {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"message": constant.WEBHOOK_TEST_SENT,
			"data":    res,
		})
	}
}

