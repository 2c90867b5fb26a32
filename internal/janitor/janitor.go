package janitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/media-subtitle-translator/pkg/file"
	"github.com/MimeLyc/media-subtitle-translator/pkg/icron"
	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

// Janitor removes transient files that outlived their job, typically
// uploads and partial audio left behind by a crashed process.
type Janitor struct {
	dir      string
	maxAge   time.Duration
	cronExpr string
	group    singleflight.Group
	now      func() time.Time
}

func New(dir string, cronExpr string, maxAge time.Duration) *Janitor {
	return &Janitor{
		dir:      dir,
		maxAge:   maxAge,
		cronExpr: strings.TrimSpace(cronExpr),
		now:      time.Now,
	}
}

// Schedule registers the sweep on c. An empty expression disables it.
func (j *Janitor) Schedule(ctx context.Context, c *cron.Cron) error {
	if j.cronExpr == "" {
		log.Info("Janitor disabled: no cron expression")
		return nil
	}
	if _, err := icron.Parse(j.cronExpr); err != nil {
		return err
	}

	_, err := c.AddFunc(j.cronExpr, func() {
		if _, err := j.Sweep(ctx); err != nil {
			log.Error("Janitor sweep of %s failed: %v", j.dir, err)
		}
		j.logNext()
	})
	if err != nil {
		return err
	}
	j.logNext()
	return nil
}

// Sweep deletes job files in the temp directory older than the max age and
// returns how many were removed. Only names of the form <uuid>_<rest> are
// touched. Overlapping calls share one sweep.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	v, err, _ := j.group.Do("sweep", func() (any, error) {
		return j.sweep(ctx)
	})
	removed, _ := v.(int)
	return removed, err
}

func (j *Janitor) sweep(ctx context.Context) (int, error) {
	stale, err := file.FindStale(j.dir, j.now().Add(-j.maxAge))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !ownedByJob(filepath.Base(path)) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Janitor failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info("Janitor removed %d stale files from %s", removed, j.dir)
	}
	return removed, nil
}

func ownedByJob(name string) bool {
	id, rest, ok := strings.Cut(name, "_")
	if !ok || rest == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

func (j *Janitor) logNext() {
	info, err := icron.GetTriggerInfo(j.cronExpr, j.now())
	if err != nil {
		return
	}
	log.Debug("Next janitor sweep at %s (in %s)", info.Next.Format(time.RFC3339), info.TimeUntilNext.Round(time.Second))
}
