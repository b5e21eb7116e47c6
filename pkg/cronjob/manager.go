// Package cronjob schedules the periodic maintenance work: the overdue
// task digest for tutors and the nightly progress snapshot.
package cronjob

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/pkg/alert"
	"github.com/atelier-edu/atelier/pkg/config"
	"github.com/atelier-edu/atelier/pkg/progress"
)

type Manager struct {
	db      *gorm.DB
	tracker *progress.Tracker
	sink    alert.Sink

	cron      *cron.Cron
	cronMutex sync.Mutex
	entries   map[string]cron.EntryID
}

func NewManager(db *gorm.DB, tracker *progress.Tracker, sink alert.Sink) *Manager {
	return &Manager{
		db:      db,
		tracker: tracker,
		sink:    sink,
		cron:    cron.New(cron.WithLocation(time.Local)),
		entries: make(map[string]cron.EntryID),
	}
}

// RegisterJobs wires the standing jobs from their configured specs. An
// empty spec disables that job.
func (m *Manager) RegisterJobs(conf *config.Config) error {
	if spec := conf.CronJobs.OverdueDigestSpec; spec != "" {
		if err := m.AddJob("overdue-digest", spec, m.runOverdueDigest); err != nil {
			return err
		}
	}
	if spec := conf.CronJobs.ProgressSnapshotSpec; spec != "" {
		if err := m.AddJob("progress-snapshot", spec, m.runProgressSnapshot); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) AddJob(name, spec string, job func()) error {
	m.cronMutex.Lock()
	defer m.cronMutex.Unlock()

	wrapped := func() {
		start := time.Now()
		job()
		klog.Infof("cron job %s finished in %s", name, time.Since(start))
	}
	entryID, err := m.cron.AddFunc(spec, wrapped)
	if err != nil {
		klog.Errorf("cron job %s with spec %q: %v", name, spec, err)
		return err
	}
	m.entries[name] = entryID
	klog.Infof("cron job %s scheduled with spec %q", name, spec)
	return nil
}

func (m *Manager) Start() {
	m.cron.Start()
}

// Stop drains the scheduler and waits for running jobs.
func (m *Manager) Stop() context.Context {
	return m.cron.Stop()
}

func (m *Manager) runOverdueDigest() {
	ctx := context.Background()
	if err := m.OverdueDigest(ctx); err != nil {
		klog.Errorf("overdue digest: %v", err)
	}
}

func (m *Manager) runProgressSnapshot() {
	ctx := context.Background()
	if err := m.ProgressSnapshot(ctx); err != nil {
		klog.Errorf("progress snapshot: %v", err)
	}
}
