package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/rs/zerolog"
	"github.com/wagate/pkg/constant"
	"github.com/wagate/pkg/state"
)

func ClaimIp() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(state.CurrentUserIP, c.ClientIP())
		c.Next()
	}
}

// Logger writes one access log line per request.
func Logger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		evt := log.Info()
		if c.Writer.Status() >= 500 {
			evt = log.Error()
		}
		evt.Str("ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("proto", c.Request.Proto).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// CheckAuth validates the bearer token and stores the user id in the context.
// Websocket clients that cannot set headers may pass the token as ?token=.
func CheckAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		myJwt := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			authToken := strings.Split(authHeader, " ")
			if len(authToken) != 2 || authToken[0] != "Bearer" {
				c.AbortWithStatusJSON(400, gin.H{"error": constant.MALFORMED_TOKEN})
				return
			}
			myJwt = authToken[1]
		}
		if myJwt == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": constant.TOKEN_REQUIRED})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(myJwt, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(401, gin.H{"error": constant.INVALID_TOKEN})
			return
		}

		if exp, ok := claims["exp"].(float64); !ok || float64(time.Now().Unix()) > exp {
			c.AbortWithStatusJSON(401, gin.H{"error": constant.TOKEN_EXPIRED})
			return
		}

		userID, ok := claims["id"].(float64)
		if !ok || userID <= 0 {
			c.AbortWithStatusJSON(401, gin.H{"error": constant.INVALID_TOKEN})
			return
		}
		c.Set(state.CurrentUserId, uint(userID))

		c.Next()
	}
}
