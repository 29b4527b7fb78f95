package oauth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joomcode/errorx"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
)

func NewRouter(client *Client) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/auth/:platform", func(c *gin.Context) {
		authUrl, err := client.AuthUrl(Platform(c.Param("platform")))
		if err != nil {
			c.IndentedJSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return
		}
		c.Redirect(http.StatusFound, authUrl)
	})

	router.GET("/oauth/callback/:platform", func(c *gin.Context) {
		platform := Platform(c.Param("platform"))
		code := c.Query("code")
		if code == "" {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "missing code"})
			return
		}

		token, err := client.ExchangeCode(c.Request.Context(), platform, code)
		if err != nil {
			if errorx.IsOfType(err, UnknownPlatform) {
				c.IndentedJSON(http.StatusNotFound, gin.H{"message": err.Error()})
				return
			}
			util.Logger.Error("Token exchange failed", zap.String("platform", string(platform)), zap.Error(err))
			c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "token exchange failed"})
			return
		}

		util.Logger.Info("Token exchange succeeded", zap.String("platform", string(platform)))
		c.IndentedJSON(http.StatusOK, gin.H{
			"platform":     platform,
			"accessToken":  token.GetToken(),
			"refreshToken": token.RefreshToken,
			"expiresIn":    token.ExpiresIn,
		})
	})

	return router
}
