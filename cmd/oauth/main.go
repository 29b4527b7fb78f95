package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.dfds.cloud/intercom-hubspot-sync/internal/config"
	"go.dfds.cloud/intercom-hubspot-sync/internal/oauth"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
	"k8s.io/utils/env"
)

// main
// One-time helper for obtaining access tokens. Open /auth/intercom or
// /auth/hubspot in a browser; the platform redirects back to
// /oauth/callback/{platform} and the token is shown as JSON.
func main() {
	util.InitializeLogger()
	defer util.Logger.Sync()

	conf, err := config.LoadOAuthConfig()
	if err != nil {
		log.Fatal("Unable to load oauth config: ", err)
	}

	gin.SetMode(gin.ReleaseMode)
	client := oauth.NewOAuthClient(conf, oauth.DefaultEndpoints())

	srv := &http.Server{
		Addr:    env.GetString("IHS_OAUTH_LISTEN_ADDR", ":3000"),
		Handler: oauth.NewRouter(client),
	}

	go func() {
		util.Logger.Info("OAuth helper listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	util.Logger.Info("OAuth helper stopped")
}
