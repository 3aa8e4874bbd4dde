package proofcache

import (
	"context"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/robfig/cron"
)

const sweepWorkerName = "ProofCacheSweepWorker"

const DefaultSweepSchedule = "@every 1m"

type SweepWorker struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron
	logger   *logger.Logger
}

func NewSweepWorker(cache *Cache, schedule string, l *logger.Logger) *SweepWorker {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &SweepWorker{
		cache:    cache,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.OrDefault(l).WithComponent(sweepWorkerName),
	}
}

func (sw *SweepWorker) GetServiceName() string {
	return sweepWorkerName
}

func (sw *SweepWorker) StartService(_ context.Context) {
	err := sw.cron.AddFunc(sw.schedule, sw.sweep)
	if err != nil {
		sw.logger.Errorf(err, "Could not add function to %s", sweepWorkerName)
		return
	}

	sw.cron.Start()
}

func (sw *SweepWorker) StopService() {
	sw.cron.Stop()
}

func (sw *SweepWorker) sweep() {
	remaining := sw.cache.Sweep()
	sw.logger.Debugf("Proof cache swept, %d entries remain", remaining)
}
