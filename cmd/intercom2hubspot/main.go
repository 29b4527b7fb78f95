package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.dfds.cloud/intercom-hubspot-sync/internal/config"
	"go.dfds.cloud/intercom-hubspot-sync/internal/orchestrator"
	"go.dfds.cloud/intercom-hubspot-sync/internal/util"
	"go.uber.org/zap"
)

// main
// Runs a single Intercom to HubSpot pass and exits.
func main() {
	util.InitializeLogger()
	defer util.Logger.Sync()

	conf, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Unable to load app config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orc := orchestrator.NewOrchestrator(ctx)
	orc.Init(conf)

	err = orc.RunJob(orchestrator.IntercomToHubSpotName)
	if err != nil {
		util.Logger.Error("Critical error during sync", zap.Error(err))
		util.Logger.Sync()
		stop()
		os.Exit(1)
	}
}
