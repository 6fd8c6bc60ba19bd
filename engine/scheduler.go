package engine

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// InitializeSchedules starts all the cron jobs (currently just one)
func (serverHandler *ServerHandler) InitializeSchedules() {
	serverConfig := serverHandler.ServerConfig

	if serverConfig.PrefetchOnStart {
		Logger.Info("Running prefetch job at startup")
		go serverHandler.prefetchJobFunc()
	}

	if serverConfig.PrefetchInterval <= 0 {
		Logger.Info("Prefetch schedule disabled")
		return
	}

	c := cron.New()
	var prefetchJob cron.Job
	prefetchJob = cron.FuncJob(func() { serverHandler.prefetchJobFunc() })
	prefetchJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(prefetchJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverConfig.PrefetchInterval), prefetchJob)
	Logger.Info("Adding prefetch job scheduler", "interval_minutes", serverConfig.PrefetchInterval)
	c.Start()
}
