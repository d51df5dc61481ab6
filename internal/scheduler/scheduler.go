// Package scheduler drives the pipeline with a single-threaded tick loop.
// Jobs due on the same tick run in pipeline dependency order regardless of
// how their triggers were registered, so a full pass keeps extraction ahead
// of staging ahead of the mart builds.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"goldwarehouse/internal/model"
	"goldwarehouse/internal/service"
)

const defaultCooldown = 5 * time.Minute

// trigger decides whether its job is due and advances its own state when
// fired. Triggers are only touched from the scheduler goroutine.
type trigger interface {
	due(now time.Time) bool
	fired(now time.Time)
}

// intervalTrigger fires every fixed duration, counted from the last firing.
type intervalTrigger struct {
	every time.Duration
	next  time.Time
}

// newIntervalTrigger returns a trigger firing every d, first due d after
// from.
func newIntervalTrigger(d time.Duration, from time.Time) *intervalTrigger {
	return &intervalTrigger{every: d, next: from.Add(d)}
}

func (t *intervalTrigger) due(now time.Time) bool { return !now.Before(t.next) }
func (t *intervalTrigger) fired(now time.Time)    { t.next = now.Add(t.every) }

// cronTrigger fires on a cron schedule. Used for the time-of-day rows in
// Job_Schedule.
type cronTrigger struct {
	schedule cron.Schedule
	next     time.Time
}

// newCronTrigger returns a trigger for a standard five-field cron spec.
func newCronTrigger(spec string, from time.Time) (*cronTrigger, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &cronTrigger{schedule: schedule, next: schedule.Next(from)}, nil
}

func (t *cronTrigger) due(now time.Time) bool { return !now.Before(t.next) }
func (t *cronTrigger) fired(now time.Time)    { t.next = t.schedule.Next(now) }

// CronSpec translates a Job_Schedule row into a five-field cron spec.
// WEEKLY fires on Mondays, MONTHLY on the first day of the month.
func CronSpec(scheduleType, scheduleTime string) (string, error) {
	parts := strings.SplitN(scheduleTime, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid schedule time %q, want HH:MM", scheduleTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid schedule hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid schedule minute %q", parts[1])
	}

	switch scheduleType {
	case model.ScheduleDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case model.ScheduleWeekly:
		return fmt.Sprintf("%d %d * * 1", minute, hour), nil
	case model.ScheduleMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour), nil
	default:
		return "", fmt.Errorf("unknown schedule type %q", scheduleType)
	}
}

type entry struct {
	jobName string
	rank    int
	trig    trigger
}

// pipelineRank positions a job within the fixed pipeline order. Unknown job
// names sort after every known stage.
func pipelineRank(jobName string) int {
	for i, name := range service.PipelineOrder {
		if name == jobName {
			return i
		}
	}
	return len(service.PipelineOrder)
}

// Scheduler polls its triggers once per tick and runs due jobs in pipeline
// dependency order. Job failures are logged and isolated; an unexpected
// loop failure pauses scheduling for a cooldown instead of crashing the
// process.
type Scheduler struct {
	pipeline *service.PipelineService
	tick     time.Duration
	cooldown time.Duration
	entries  []entry
	now      func() time.Time
}

func New(pipeline *service.PipelineService, tick time.Duration) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		tick:     tick,
		cooldown: defaultCooldown,
		now:      time.Now,
	}
}

// register adds a job trigger, keeping the entries sorted by pipeline
// position so same-tick jobs run in dependency order. Triggers for the same
// job, and for names outside the pipeline, stay in registration order.
func (s *Scheduler) register(jobName string, trig trigger) {
	s.entries = append(s.entries, entry{jobName: jobName, rank: pipelineRank(jobName), trig: trig})
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].rank < s.entries[j].rank
	})
}

// RegisterInterval registers a job to run every d, starting one interval
// from now.
func (s *Scheduler) RegisterInterval(jobName string, d time.Duration) {
	s.register(jobName, newIntervalTrigger(d, s.now()))
}

// RegisterSchedule registers a job from a Job_Schedule row.
func (s *Scheduler) RegisterSchedule(js model.JobSchedule) error {
	spec, err := CronSpec(js.ScheduleType, js.ScheduleTime)
	if err != nil {
		return err
	}
	trig, err := newCronTrigger(spec, s.now())
	if err != nil {
		return err
	}
	s.register(js.JobName, trig)
	return nil
}

// Run blocks until ctx is cancelled, polling once per tick. Cancellation is
// honored between jobs, never mid-job.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("Scheduler started with %d triggers, tick %s", len(s.entries), s.tick)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runDue(ctx); err != nil {
				log.Printf("ERROR: scheduler pass failed: %v, pausing for %s", err, s.cooldown)
				select {
				case <-ctx.Done():
					log.Println("Scheduler stopping")
					return ctx.Err()
				case <-time.After(s.cooldown):
				}
			}
		}
	}
}

// runDue runs every due job in pipeline order. A job error is recorded by
// the tracker and logged here; only a panic escaping the pipeline is
// treated as a loop failure.
func (s *Scheduler) runDue(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler pass panicked: %v", r)
		}
	}()

	now := s.now()
	for i := range s.entries {
		if ctx.Err() != nil {
			return nil
		}

		e := &s.entries[i]
		if !e.trig.due(now) {
			continue
		}
		e.trig.fired(now)

		if jobErr := s.pipeline.RunJob(ctx, e.jobName); jobErr != nil {
			log.Printf("ERROR: job %s failed: %v", e.jobName, jobErr)
		}
	}
	return nil
}
