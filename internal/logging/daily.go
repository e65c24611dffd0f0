package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/chiplogic/internal/filex"
)

const dailyLayout = "2006-01-02"

// DailyFile is an io.Writer appending to dir/error-YYYY-MM-DD.log. The file
// is switched on the first write of a new calendar day.
type DailyFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyFile creates dir if needed.
func NewDailyFile(dir string) (*DailyFile, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	return &DailyFile{dir: abs, now: time.Now}, nil
}

// FileName returns the log file name for t.
func FileName(t time.Time) string {
	return "error-" + t.Format(dailyLayout) + ".log"
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.file == nil || now.Format(dailyLayout) != d.day {
		if err := d.rotate(now); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

func (d *DailyFile) rotate(now time.Time) error {
	if d.file != nil {
		_ = d.file.Close()
		d.file = nil
	}

	name := filepath.Join(d.dir, FileName(now))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	d.file, d.day = f, now.Format(dailyLayout)
	return nil
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// NewFileLogger returns a logger writing to a DailyFile under dir. The
// returned closer releases the open file.
func NewFileLogger(dir string, debug bool) (*SlogLogger, func() error, error) {
	w, err := NewDailyFile(dir)
	if err != nil {
		return nil, nil, err
	}
	return New(w, debug), w.Close, nil
}
