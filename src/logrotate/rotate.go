package logrotate

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"exchange-sim/src/logger"
	"exchange-sim/src/models"
)

// -----------------------------------------------------------------------------
// Startup log rotation. One day = one file across restarts: nothing is
// touched while the persisted day marker still names the current local day.
// When the day changed, only the prior day's lines move into a per-day
// archive folder; lines of any other day and lines without an ISO-date
// prefix stay where they are so nothing is ever lost.
// -----------------------------------------------------------------------------

var isoDayPrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T`)

// LocalDay formats a time as the local calendar day.
func LocalDay(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayFromLogLine extracts the day of a strictly ISO-prefixed log line.
func DayFromLogLine(line string) string {
	m := isoDayPrefix.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// SplitByDay partitions a log file's lines into the ones to archive (exactly
// dayToArchive) and the ones to keep (other days, undated lines, blanks).
func SplitByDay(content, dayToArchive string) (archive, keep []string) {
	lines := strings.Split(content, "\n")
	// Normalize CRLF input.
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	for _, line := range lines {
		if line != "" && DayFromLogLine(line) == dayToArchive {
			archive = append(archive, line)
			continue
		}
		keep = append(keep, line)
	}
	for len(archive) > 0 && archive[len(archive)-1] == "" {
		archive = archive[:len(archive)-1]
	}
	return archive, keep
}

// inferDayFromLogs falls back to the older mtime of the two log files when no
// marker was persisted.
func inferDayFromLogs(incoming, outgoing string) string {
	var oldest time.Time
	for _, p := range []string{incoming, outgoing} {
		st, err := os.Stat(p)
		if err != nil {
			continue
		}
		if oldest.IsZero() || st.ModTime().Before(oldest) {
			oldest = st.ModTime()
		}
	}
	if oldest.IsZero() {
		return ""
	}
	return LocalDay(oldest)
}

func ensureFile(path string) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = os.WriteFile(path, nil, 0o644)
	}
}

func rotateOne(src, archiveDir, name, day string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	archive, keep := SplitByDay(string(data), day)
	if len(archive) > 0 {
		target := filepath.Join(archiveDir, name)
		if err := os.WriteFile(target, []byte(strings.Join(archive, "\n")+"\n"), 0o644); err != nil {
			return err
		}
	}
	return os.WriteFile(src, []byte(strings.Join(keep, "\n")), 0o644)
}

// RotateOnStartup applies the day-marker rotation policy.
func RotateOnStartup(cfg models.MLogConfig, log *logger.Logger) {
	if cfg.Dir == "" {
		return
	}
	_ = os.MkdirAll(cfg.Dir, 0o755)
	_ = os.MkdirAll(cfg.ArchiveDir, 0o755)
	ensureFile(cfg.IncomingLog)
	ensureFile(cfg.OutgoingLog)

	today := LocalDay(time.Now())

	lastDay := ""
	if data, err := os.ReadFile(cfg.DayMarkerFile); err == nil {
		lastDay = strings.TrimSpace(string(data))
	}
	if lastDay == "" {
		lastDay = inferDayFromLogs(cfg.IncomingLog, cfg.OutgoingLog)
	}
	if lastDay == "" {
		lastDay = today
	}

	if lastDay == today {
		writeMarker(cfg.DayMarkerFile, today, log)
		return
	}

	archiveSubDir := filepath.Join(cfg.ArchiveDir, lastDay)
	if err := os.MkdirAll(archiveSubDir, 0o755); err != nil {
		log.Error("log rotation: create archive dir: %v", err)
		writeMarker(cfg.DayMarkerFile, today, log)
		return
	}
	if err := rotateOne(cfg.IncomingLog, archiveSubDir, "incoming.log", lastDay); err != nil {
		log.Error("log rotation: incoming: %v", err)
	}
	if err := rotateOne(cfg.OutgoingLog, archiveSubDir, "outgoing.log", lastDay); err != nil {
		log.Error("log rotation: outgoing: %v", err)
	}
	log.Info("log rotation: day=%s -> %s archivedTo=%s", lastDay, today, archiveSubDir)
	writeMarker(cfg.DayMarkerFile, today, log)
}

func writeMarker(path, day string, log *logger.Logger) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte(day+"\n"), 0o644); err != nil {
		log.Error("log rotation: write day marker: %v", err)
	}
}
