package server

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"exchange-sim/src/logger"
	"exchange-sim/src/models"
)

// -----------------------------------------------------------------------------
// Wire traffic log
// -----------------------------------------------------------------------------

// wireLog appends every inbound and outbound frame to the incoming/outgoing
// log files, one ISO-timestamped line per frame. These are the files the
// startup rotation archives per day.
type wireLog struct {
	mu       sync.Mutex
	incoming *os.File
	outgoing *os.File
}

func openWireLog(cfg *models.MConfig, log *logger.Logger) *wireLog {
	w := &wireLog{}
	w.incoming = openAppend(cfg.Log.IncomingLog, log)
	w.outgoing = openAppend(cfg.Log.OutgoingLog, log)
	return w
}

func openAppend(path string, log *logger.Logger) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warning("wire log dir: %v", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warning("wire log open %s: %v", path, err)
		return nil
	}
	return f
}

func (w *wireLog) Incoming(data []byte) { w.write(w.incoming, data) }
func (w *wireLog) Outgoing(data []byte) { w.write(w.outgoing, data) }

func (w *wireLog) write(f *os.File, data []byte) {
	if w == nil || f == nil {
		return
	}
	line := time.Now().UTC().Format("2006-01-02T15:04:05.000Z") + " " + string(data) + "\n"
	w.mu.Lock()
	_, _ = f.WriteString(line)
	w.mu.Unlock()
}

func (w *wireLog) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.incoming != nil {
		w.incoming.Close()
	}
	if w.outgoing != nil {
		w.outgoing.Close()
	}
}
