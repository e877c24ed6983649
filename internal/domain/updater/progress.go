package updater

import "sync"

// Progress checkpoints. UI layers depend on these exact values.
const (
	ProgressStart        = 0
	ProgressTransferMin  = 10
	ProgressTransferMax  = 70
	ProgressDownloaded   = 71
	ProgressHotInstalled = 85
	ProgressComplete     = 100
)

// ProgressEvent reports download progress for one bundle
type ProgressEvent struct {
	ID      string
	Percent int
}

// ProgressListener receives progress events. It may be called from any
// goroutine.
type ProgressListener func(ProgressEvent)

// totalPercent maps a 0-100 value into the band [min, max]
func totalPercent(percent, min, max int) int {
	return percent*(max-min)/100 + min
}

type listeners struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]ProgressListener
}

func (l *listeners) add(fn ProgressListener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]ProgressListener)
	}
	key := l.nextID
	l.nextID++
	l.fns[key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, key)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) notify(ev ProgressEvent) {
	l.mu.RLock()
	fns := make([]ProgressListener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
