package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"med-reminder/internal/repository"
)

// SchedulerService keeps one daily cron alarm per distinct time of day in use.
// Each alarm re-reads the medications for its time when it fires; the table
// below only decides which alarms must exist.
type SchedulerService struct {
	cron        *cron.Cron
	medRepo     *repository.MedicationRepository
	reminders   *ReminderService
	log         zerolog.Logger
	fireTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	index   map[string]map[string]struct{} // time of day -> medication ids, or pinnedOwner
	byMed   map[string][]string            // medication id -> times of day
}

// pinnedOwner holds alarms armed through AddTime so that no medication
// leaving a time can disarm it. Medication ids are never empty.
const pinnedOwner = ""

func NewSchedulerService(loc *time.Location, medRepo *repository.MedicationRepository, reminders *ReminderService, zl zerolog.Logger, fireTimeout time.Duration) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	if fireTimeout <= 0 {
		fireTimeout = 30 * time.Second
	}
	logger := zl.With().Str("component", "scheduler").Logger()
	cronLog := cron.PrintfLogger(log.New(logger, "cron: ", 0))

	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		medRepo:     medRepo,
		reminders:   reminders,
		log:         logger,
		fireTimeout: fireTimeout,
		now:         time.Now,
		entries:     make(map[string]cron.EntryID),
		index:       make(map[string]map[string]struct{}),
		byMed:       make(map[string][]string),
	}
}

// Arm loads every medication and registers one alarm per distinct valid time.
func (s *SchedulerService) Arm(ctx context.Context) error {
	meds, err := s.medRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load medications: %w", err)
	}
	for _, med := range meds {
		s.Track(med.ID, med.DailyTimes())
	}
	s.log.Info().Int("medications", len(meds)).Int("alarms", len(s.Times())).Msg("scheduler armed")
	return nil
}

// Track records the current daily times of a medication. Alarms are added for
// new times and removed for times no medication uses any more.
func (s *SchedulerService) Track(medicationID string, times []string) {
	next := make([]TimeOfDay, 0, len(times))
	for _, raw := range uniqueTimes(times) {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			s.log.Warn().Str("medication", medicationID).Str("time_of_day", raw).Msg("invalid daily time ignored")
			continue
		}
		next = append(next, tod)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]struct{}, len(next))
	for _, tod := range next {
		keep[tod.String()] = struct{}{}
	}
	for _, old := range s.byMed[medicationID] {
		if _, ok := keep[old]; ok {
			continue
		}
		delete(s.index[old], medicationID)
		if len(s.index[old]) == 0 {
			s.removeTimeLocked(old)
		}
	}

	current := make([]string, 0, len(next))
	for _, tod := range next {
		key := tod.String()
		if s.index[key] == nil {
			s.index[key] = make(map[string]struct{})
		}
		s.index[key][medicationID] = struct{}{}
		if err := s.addTimeLocked(tod); err != nil {
			s.log.Error().Err(err).Str("time_of_day", key).Msg("arm alarm")
		}
		current = append(current, key)
	}
	if len(current) == 0 {
		delete(s.byMed, medicationID)
		return
	}
	s.byMed[medicationID] = current
}

// Untrack forgets a deleted medication.
func (s *SchedulerService) Untrack(medicationID string) {
	s.Track(medicationID, nil)
}

// AddTime arms an alarm for timeOfDay without touching existing ones. The
// alarm stays armed until RemoveTime, whatever medications come and go.
func (s *SchedulerService) AddTime(timeOfDay string) error {
	tod, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addTimeLocked(tod); err != nil {
		return err
	}
	key := tod.String()
	if s.index[key] == nil {
		s.index[key] = make(map[string]struct{})
	}
	s.index[key][pinnedOwner] = struct{}{}
	return nil
}

// RemoveTime disarms the alarm for timeOfDay and drops it from the table.
func (s *SchedulerService) RemoveTime(timeOfDay string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for medID := range s.index[timeOfDay] {
		if medID == pinnedOwner {
			continue
		}
		times := s.byMed[medID][:0:0]
		for _, t := range s.byMed[medID] {
			if t != timeOfDay {
				times = append(times, t)
			}
		}
		if len(times) == 0 {
			delete(s.byMed, medID)
		} else {
			s.byMed[medID] = times
		}
	}
	s.removeTimeLocked(timeOfDay)
}

func (s *SchedulerService) addTimeLocked(tod TimeOfDay) error {
	key := tod.String()
	if _, ok := s.entries[key]; ok {
		return nil
	}
	id, err := s.cron.AddFunc(tod.CronSpec(), func() { s.fire(tod) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	s.entries[key] = id
	s.log.Info().Str("time_of_day", key).Msg("alarm armed")
	return nil
}

func (s *SchedulerService) removeTimeLocked(key string) {
	delete(s.index, key)
	id, ok := s.entries[key]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, key)
	s.log.Info().Str("time_of_day", key).Msg("alarm disarmed")
}

// Times lists the armed times of day in clock order.
func (s *SchedulerService) Times() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for key := range s.entries {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Fire runs one alarm: every medication currently holding timeOfDay goes
// through the materializer at now. A failing medication does not stop the rest.
func (s *SchedulerService) Fire(ctx context.Context, timeOfDay TimeOfDay, now time.Time) (int, error) {
	meds, err := s.medRepo.ListByTimeOfDay(ctx, timeOfDay.String())
	if err != nil {
		return 0, fmt.Errorf("load medications for %s: %w", timeOfDay, err)
	}
	created := 0
	var errs []error
	for i := range meds {
		reminder, err := s.reminders.Materialize(ctx, &meds[i], timeOfDay, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if reminder != nil {
			created++
		}
	}
	return created, errors.Join(errs...)
}

func (s *SchedulerService) fire(tod TimeOfDay) {
	logger := s.log.With().Str("time_of_day", tod.String()).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("alarm panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.fireTimeout)
	defer cancel()

	start := s.now()
	created, err := s.Fire(ctx, tod, start)
	if err != nil {
		logger.Error().Err(err).Int("created", created).Msg("alarm firing failed")
		return
	}
	logger.Info().Int("created", created).Dur("took", time.Since(start)).Msg("alarm fired")
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the alarms and waits for running firings to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
