package monitor

import (
	"github.com/hailocam/hailocam/pkg/gen"
	"github.com/hailocam/hailocam/pkg/nn"
)

// SYNC-WATCHER-CHANNEL-SIZE
const WatcherChannelSize = 100

// Register to receive detection results
func (m *Monitor) AddWatcher() chan *nn.DetectionResult {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *nn.DetectionResult, WatcherChannelSize)
	m.watchers = append(m.watchers, ch)
	return ch
}

// Unregister from detection results
func (m *Monitor) RemoveWatcher(ch chan *nn.DetectionResult) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = gen.DeleteFromSliceUnordered(m.watchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveWatcher failed to find channel")
}

func (m *Monitor) sendToWatchers(result *nn.DetectionResult) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for _, watcher := range m.watchers {
		if len(watcher) >= cap(watcher)*9/10 {
			// Watcher is falling far behind. Rather drop frames than block the NN thread.
			m.Log.Warnf("Watcher on 90%% full channel. Dropping detection result")
		} else {
			watcher <- result
		}
	}
}

func (m *Monitor) closeWatchers() {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for _, watcher := range m.watchers {
		close(watcher)
	}
	m.watchers = nil
}
