package timescheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/core/ports"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// ScheduleTask runs task every interval. A run still in progress when the
// next one is due makes the scheduler skip it.
func (s *service) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}

	job := s.scheduler.Every(interval).SingletonMode()
	if immediate {
		job = job.StartImmediately()
	} else {
		job = job.WaitForSchedule()
	}
	if _, err := job.Do(task); err != nil {
		return err
	}

	log.Debugf("scheduled task every %s", interval)
	return nil
}
