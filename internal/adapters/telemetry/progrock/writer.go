package progrock

import (
	"strings"
	"sync"

	"github.com/vito/progrock"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// LogWriter is a progrock.Writer that reports finished vertices and their
// output through a ports.Logger.
type LogWriter struct {
	logger ports.Logger

	mu    sync.Mutex
	names map[string]string
	done  map[string]bool
}

// NewLogWriter creates a LogWriter.
func NewLogWriter(log ports.Logger) *LogWriter {
	return &LogWriter{
		logger: log,
		names:  make(map[string]string),
		done:   make(map[string]bool),
	}
}

// WriteStatus implements progrock.Writer.
func (w *LogWriter) WriteStatus(u *progrock.StatusUpdate) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, v := range u.Vertexes {
		w.names[v.Id] = v.Name
	}
	for _, l := range u.Logs {
		for _, line := range strings.Split(strings.TrimRight(string(l.Data), "\n"), "\n") {
			if line != "" {
				w.logger.Info(line, "step", w.names[l.Vertex])
			}
		}
	}
	for _, v := range u.Vertexes {
		if v.Completed == nil {
			delete(w.done, v.Id)
			continue
		}
		if w.done[v.Id] {
			continue
		}
		w.done[v.Id] = true
		switch {
		case v.Error != nil:
			w.logger.Warn("step failed", "step", v.Name, "error", *v.Error)
		case v.Cached:
			w.logger.Info("step skipped", "step", v.Name, "reason", "nothing to do")
		}
	}
	return nil
}

// Close implements progrock.Writer.
func (w *LogWriter) Close() error {
	return nil
}
