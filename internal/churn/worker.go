package churn

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/GabrielNunesIT/logchurn/internal/randpool"
	"github.com/GabrielNunesIT/logchurn/internal/stats"
	"github.com/spf13/afero"
)

// maxPathDraws bounds the search for a path no other open slot holds.
const maxPathDraws = 1024

// worker mutates its own slots. Nothing in a worker is shared except the
// recorder, the counters and the action table.
type worker struct {
	id       int
	dir      string
	fs       afero.Fs
	rng      *rand.Rand
	pool     []string
	slots    []slot
	maxLine  int
	suffix   string
	rec      Recorder
	counters *stats.Counters
	dist     func() *Distribution
	logger   logger.ILogger
}

func workerDir(root string, id int) string {
	return filepath.Join(root, fmt.Sprintf("worker-%d", id))
}

// run steps until ctx is cancelled or, when iterations > 0, until that many
// steps were taken. Open slots are closed on return.
func (w *worker) run(ctx context.Context, iterations int) error {
	defer w.closeAll()

	w.logger.Debugf("worker started: dir=%s slots=%d pool=%d", w.dir, len(w.slots), len(w.pool))

	for i := 0; iterations == 0 || i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := w.step(); err != nil {
			return err
		}
	}

	w.logger.Debugf("worker finished: iterations=%d", iterations)
	return nil
}

// step takes one iteration: pick a slot, open it if closed, then apply a
// drawn action.
func (w *worker) step() error {
	s := &w.slots[w.rng.IntN(len(w.slots))]

	if !s.isOpen() {
		path, err := w.newPath()
		if err != nil {
			return err
		}
		if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return model.NewEnvironmentError("creating directory", filepath.Dir(path), err)
		}
		if err := s.open(w.fs, path); err != nil {
			return err
		}
	}

	return w.apply(s, w.dist().Draw(w.rng))
}

func (w *worker) apply(s *slot, action Action) error {
	switch action {
	case ActionDelete:
		path, err := s.close()
		if err != nil {
			return err
		}
		if err := w.fs.Remove(path); err != nil {
			return model.NewEnvironmentError("removing", path, err)
		}
		w.logger.Debugf("deleted file: path=%s", path)

	case ActionCreate:
		// The slot was opened above if it needed to be.

	case ActionWrite:
		return w.writeLine(s)

	case ActionRotate:
		path, err := s.close()
		if err != nil {
			return err
		}
		rotated := path + w.suffix
		if err := w.fs.Rename(path, rotated); err != nil {
			return model.NewEnvironmentError("rotating", path, err)
		}
		if err := s.open(w.fs, path); err != nil {
			return err
		}
		w.logger.Debugf("rotated file: path=%s to=%s", path, rotated)

	case ActionTruncate:
		if err := s.reopen(w.fs); err != nil {
			return err
		}
		w.logger.Debugf("truncated file: path=%s", s.path)
	}
	return nil
}

// writeLine records a line before writing it so a fast reader can never
// report a line the ledger does not know yet.
func (w *worker) writeLine(s *slot) error {
	line := randpool.Line(w.rng, w.pool, w.maxLine)
	w.rec.Record(s.path, line)

	if _, err := s.file.Write([]byte(line + "\n")); err != nil {
		return model.NewEnvironmentError("writing", s.path, err)
	}
	w.counters.AddLines(1)
	return nil
}

// newPath draws <dir>/[<frag>/]<frag>.log, skipping paths held by another
// open slot.
func (w *worker) newPath() (string, error) {
	for range maxPathDraws {
		dir := w.dir
		if w.rng.IntN(2) == 0 {
			dir = filepath.Join(dir, randpool.Pick(w.rng, w.pool))
		}
		path := filepath.Join(dir, randpool.Pick(w.rng, w.pool)+".log")
		if !w.inUse(path) {
			return path, nil
		}
	}
	return "", model.NewEnvironmentError("choosing path", w.dir, fmt.Errorf("no free path after %d draws", maxPathDraws))
}

func (w *worker) inUse(path string) bool {
	for i := range w.slots {
		if w.slots[i].isOpen() && w.slots[i].path == path {
			return true
		}
	}
	return false
}

func (w *worker) closeAll() {
	for i := range w.slots {
		if _, err := w.slots[i].close(); err != nil {
			w.logger.Warningf("failed to close slot: error=%v", err)
		}
	}
}
