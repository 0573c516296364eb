package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/solestate/estated/internal/core/ports"
	timescheduler "github.com/solestate/estated/internal/infrastructure/scheduler/gocron"
	"github.com/stretchr/testify/require"
)

type service struct {
	name      string
	scheduler ports.SchedulerService
}

func TestScheduleTask(t *testing.T) {
	t.Parallel()

	svcs := servicesToTest(t)

	for _, svc := range svcs {
		t.Run(svc.name, func(t *testing.T) {
			t.Run("immediate", func(t *testing.T) {
				var calls atomic.Int32
				err := svc.scheduler.ScheduleTask(time.Hour, true, func() {
					calls.Add(1)
				})
				require.NoError(t, err)

				require.Eventually(t, func() bool {
					return calls.Load() == 1
				}, 3*time.Second, 50*time.Millisecond)
			})

			t.Run("periodic", func(t *testing.T) {
				var calls atomic.Int32
				err := svc.scheduler.ScheduleTask(time.Second, false, func() {
					calls.Add(1)
				})
				require.NoError(t, err)

				require.Eventually(t, func() bool {
					return calls.Load() >= 2
				}, 5*time.Second, 100*time.Millisecond)
			})

			t.Run("invalid interval", func(t *testing.T) {
				err := svc.scheduler.ScheduleTask(0, true, func() {})
				require.Error(t, err)
			})
		})
	}
}

func servicesToTest(t *testing.T) []service {
	svcs := []service{
		{name: "gocron", scheduler: timescheduler.NewScheduler()},
	}

	for _, svc := range svcs {
		svc.scheduler.Start()
		t.Cleanup(func() { svc.scheduler.Stop() })
	}

	return svcs
}
