// Package report writes the final auction results as plain text.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/engine"
)

// File keeps one report per auction run in Path. Runs are appended; exporting
// again within the same run rewrites that run's report in place.
type File struct {
	Path string
	Now  func() time.Time

	started  bool
	runStart int64
}

func NewFile(path string) *File {
	return &File{Path: path, Now: time.Now}
}

// NewRun makes the next Export start a new report after the existing ones.
func (f *File) NewRun() {
	f.started = false
}

func (f *File) Export(s engine.State) error {
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	file, err := os.OpenFile(f.Path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	defer file.Close()

	if !f.started {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("seek report file: %w", err)
		}
		f.runStart = end
		f.started = true
	}
	if err := file.Truncate(f.runStart); err != nil {
		return fmt.Errorf("truncate report file: %w", err)
	}
	if _, err := file.Seek(f.runStart, io.SeekStart); err != nil {
		return fmt.Errorf("seek report file: %w", err)
	}

	if f.runStart > 0 {
		if _, err := io.WriteString(file, "\n\n"); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if err := Write(file, s, f.Now()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Write renders standings followed by every team's roster.
func Write(w io.Writer, s engine.State, at time.Time) error {
	p := message.NewPrinter(language.English)
	var sb strings.Builder

	sb.WriteString("Auction Results\n")
	sb.WriteString(fmt.Sprintf("Finished: %s\n", at.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString("Standings:\n")
	for _, st := range engine.Standings(s) {
		sb.WriteString(p.Sprintf("%d. %s  synergy %d  remaining %d  spent %d  (%d items)\n",
			st.Rank, st.Name, st.Synergy, st.Remaining, st.Spent, st.RosterSize))
	}

	for _, t := range s.Teams {
		sb.WriteString("\n" + t.Name + "\n")
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		if len(t.Roster) == 0 {
			sb.WriteString("(no purchases)\n")
			continue
		}
		for _, a := range t.Roster {
			sb.WriteString(p.Sprintf("- %s [%s/%s] %d  synergy %+d\n",
				a.Item.Name, a.Item.Role, a.Item.Archetype, a.BoughtPrice, a.IndividualSynergy))
		}
	}

	var unsold []string
	for _, it := range s.Items {
		if it.Status != catalog.StatusSold {
			unsold = append(unsold, it.Name)
		}
	}
	if len(unsold) > 0 {
		sb.WriteString(fmt.Sprintf("\nUnsold (%d): %s\n", len(unsold), strings.Join(unsold, ", ")))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
