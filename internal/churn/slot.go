package churn

import (
	"os"

	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/spf13/afero"
)

type slotState int

const (
	slotClosed slotState = iota
	slotOpen
)

const openFlags = os.O_RDWR | os.O_CREATE | os.O_TRUNC

// slot is one file handle owned by a worker. A closed slot holds nothing; an
// open slot holds a handle and the path it was opened at.
type slot struct {
	state slotState
	file  afero.File
	path  string
}

// open moves a closed slot to open, truncating path.
func (s *slot) open(fs afero.Fs, path string) error {
	f, err := fs.OpenFile(path, openFlags, 0o644)
	if err != nil {
		return model.NewEnvironmentError("opening", path, err)
	}
	s.state = slotOpen
	s.file = f
	s.path = path
	return nil
}

// close releases the handle and returns the path it was bound to.
func (s *slot) close() (string, error) {
	path := s.path
	if s.state != slotOpen {
		return path, nil
	}

	err := s.file.Close()
	s.state = slotClosed
	s.file = nil
	s.path = ""
	if err != nil {
		return path, model.NewEnvironmentError("closing", path, err)
	}
	return path, nil
}

// reopen closes the slot and opens the same path again, truncated.
func (s *slot) reopen(fs afero.Fs) error {
	path, err := s.close()
	if err != nil {
		return err
	}
	return s.open(fs, path)
}

func (s *slot) isOpen() bool {
	return s.state == slotOpen
}
