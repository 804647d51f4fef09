package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adibhanna/focusflow/internal/models"
	"github.com/adibhanna/focusflow/internal/timer"
)

type Storage struct {
	dataDir string
}

// New opens the default data directory, ~/.focusflow.
func New() (*Storage, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewAt(filepath.Join(homeDir, ".focusflow"))
}

// NewAt opens (and creates) a data directory at dir.
func NewAt(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Storage{dataDir: dir}, nil
}

func (s *Storage) DataDir() string {
	return s.dataDir
}

func (s *Storage) phasesFile() string {
	return filepath.Join(s.dataDir, "phases.json")
}

func (s *Storage) configFile() string {
	return filepath.Join(s.dataDir, "config.json")
}

func (s *Storage) SavePhase(record models.PhaseRecord) error {
	records, err := s.GetAllPhases()
	if err != nil {
		return err
	}

	// Check if this is an update to an existing record
	found := false
	for i, existing := range records {
		if existing.ID == record.ID {
			records[i] = record
			found = true
			break
		}
	}

	if !found {
		records = append(records, record)
	}

	if err := s.writeJSON(s.phasesFile(), records); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"id":    record.ID,
		"phase": record.Phase,
	}).Debug("saved phase record")
	return nil
}

func (s *Storage) GetAllPhases() ([]models.PhaseRecord, error) {
	data, err := os.ReadFile(s.phasesFile())
	if err != nil {
		if os.IsNotExist(err) {
			return []models.PhaseRecord{}, nil
		}
		return nil, err
	}

	var records []models.PhaseRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.phasesFile(), err)
	}

	return records, nil
}

func (s *Storage) GetPhasesByDate(date string) ([]models.PhaseRecord, error) {
	return s.filterPhases(func(r models.PhaseRecord) bool {
		return r.Date == date
	})
}

func (s *Storage) GetWeekPhases(year int, week int) ([]models.PhaseRecord, error) {
	return s.filterPhases(func(r models.PhaseRecord) bool {
		return r.Year == year && r.Week == week
	})
}

func (s *Storage) filterPhases(keep func(models.PhaseRecord) bool) ([]models.PhaseRecord, error) {
	all, err := s.GetAllPhases()
	if err != nil {
		return nil, err
	}

	var records []models.PhaseRecord
	for _, r := range all {
		if keep(r) {
			records = append(records, r)
		}
	}

	return records, nil
}

// GetConfig returns the saved preferences, writing the defaults on first use.
func (s *Storage) GetConfig() (models.Config, error) {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		if os.IsNotExist(err) {
			config := models.DefaultConfig()
			if err := s.SaveConfig(config); err != nil {
				return config, err
			}
			return config, nil
		}
		return models.Config{}, err
	}

	config := models.DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return models.Config{}, fmt.Errorf("parse %s: %w", s.configFile(), err)
	}

	return config, nil
}

func (s *Storage) SaveConfig(config models.Config) error {
	return s.writeJSON(s.configFile(), config)
}

// SetBackground records the current background image. A nil background clears it.
func (s *Storage) SetBackground(bg *models.Background) error {
	config, err := s.GetConfig()
	if err != nil {
		return err
	}
	config.Background = bg
	return s.SaveConfig(config)
}

func (s *Storage) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Storage) GetDayStats(date string) (models.DayStats, error) {
	records, err := s.GetPhasesByDate(date)
	if err != nil {
		return models.DayStats{}, err
	}

	stats := models.DayStats{
		Date:   date,
		Phases: records,
	}
	for _, r := range records {
		if r.Phase == timer.PhaseFocus {
			stats.FocusCount++
			stats.FocusMinutes += r.Seconds / 60
		} else {
			stats.BreakMinutes += r.Seconds / 60
		}
	}

	return stats, nil
}

func (s *Storage) GetWeekStats(year int, week int) (models.WeekStats, error) {
	records, err := s.GetWeekPhases(year, week)
	if err != nil {
		return models.WeekStats{}, err
	}

	stats := models.WeekStats{
		Week: week,
		Year: year,
	}

	dateMap := make(map[string][]models.PhaseRecord)
	for _, r := range records {
		if r.Phase == timer.PhaseFocus {
			stats.FocusCount++
			stats.FocusMinutes += r.Seconds / 60
		} else {
			stats.BreakMinutes += r.Seconds / 60
		}
		dateMap[r.Date] = append(dateMap[r.Date], r)
	}

	dates := make([]string, 0, len(dateMap))
	for date := range dateMap {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		day, err := s.GetDayStats(date)
		if err != nil {
			return models.WeekStats{}, err
		}
		stats.DailyStats = append(stats.DailyStats, day)
	}

	return stats, nil
}

func (s *Storage) ResetAllData() error {
	if err := os.Remove(s.phasesFile()); err != nil && !os.IsNotExist(err) {
		return err
	}

	if err := os.Remove(s.configFile()); err != nil && !os.IsNotExist(err) {
		return err
	}

	logrus.Info("all focusflow data removed")
	return nil
}

func (s *Storage) IsFirstTime() bool {
	if _, err := os.Stat(s.configFile()); os.IsNotExist(err) {
		return true
	}
	return false
}

// ExportReport renders every stored phase as a plain-text report.
func (s *Storage) ExportReport(now time.Time) (string, error) {
	all, err := s.GetAllPhases()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Focus Flow - Statistics Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("January 2, 2006 3:04 PM"))
	b.WriteString("=====================================\n\n")

	focusCount := 0
	var focusTime, breakTime time.Duration
	for _, r := range all {
		d := time.Duration(r.Seconds) * time.Second
		if r.Phase == timer.PhaseFocus {
			focusCount++
			focusTime += d
		} else {
			breakTime += d
		}
	}

	b.WriteString("OVERALL STATISTICS\n")
	b.WriteString("------------------\n")
	fmt.Fprintf(&b, "Completed Phases: %d\n", len(all))
	fmt.Fprintf(&b, "Focus Phases: %d\n", focusCount)
	fmt.Fprintf(&b, "Total Focus Time: %s\n", timer.FormatUsage(focusTime))
	fmt.Fprintf(&b, "Total Break Time: %s\n", timer.FormatUsage(breakTime))
	if focusCount > 0 {
		fmt.Fprintf(&b, "Average Focus Phase: %s\n", timer.FormatUsage(focusTime/time.Duration(focusCount)))
	}
	b.WriteString("\n")

	year, week := now.ISOWeek()
	weekStats, err := s.GetWeekStats(year, week)
	if err == nil && len(weekStats.DailyStats) > 0 {
		fmt.Fprintf(&b, "CURRENT WEEK (Week %d, %d)\n", weekStats.Week, weekStats.Year)
		b.WriteString("------------------------\n")
		fmt.Fprintf(&b, "Focus Phases: %d (%dm)\n", weekStats.FocusCount, weekStats.FocusMinutes)
		for _, day := range weekStats.DailyStats {
			date, _ := time.Parse("2006-01-02", day.Date)
			fmt.Fprintf(&b, "  %s: %d focus (%dm), %dm break\n",
				date.Format("Monday"), day.FocusCount, day.FocusMinutes, day.BreakMinutes)
		}
		b.WriteString("\n")
	}

	today, err := s.GetDayStats(now.Format("2006-01-02"))
	if err == nil && len(today.Phases) > 0 {
		fmt.Fprintf(&b, "TODAY (%s)\n", now.Format("Monday, January 2, 2006"))
		b.WriteString("-------------------------------\n")
		for i, r := range today.Phases {
			fmt.Fprintf(&b, "  %d. %-11s %s - %s (%d min)\n",
				i+1,
				r.Phase.Label(),
				r.StartTime.Format("3:04 PM"),
				r.EndTime.Format("3:04 PM"),
				r.Seconds/60,
			)
		}
	}

	return b.String(), nil
}

// SaveReport writes ExportReport to a timestamped file in dir. With an empty
// dir it tries ~/Downloads and falls back to the home directory.
func (s *Storage) SaveReport(now time.Time, dir string) (string, error) {
	report, err := s.ExportReport(now)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("focusflow-stats-%s.txt", now.Format("2006-01-02-150405"))

	if dir != "" {
		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, []byte(report), 0644); err != nil {
			return "", fmt.Errorf("failed to save report: %w", err)
		}
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	path := filepath.Join(homeDir, "Downloads", filename)
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		// Downloads may not exist
		path = filepath.Join(homeDir, filename)
		if err := os.WriteFile(path, []byte(report), 0644); err != nil {
			return "", fmt.Errorf("failed to save report: %w", err)
		}
	}
	return path, nil
}
