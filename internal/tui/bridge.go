package tui

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AlverezYari/featherlink/internal/session"
)

const logQueueSize = 256

// Bridge forwards session snapshots and log lines into a running program.
// Producers never block: the session may notify from inside Update (a key
// press issues a command), and a blocking p.Send there would deadlock.
// Only the newest snapshot is kept; log lines are dropped when the queue is
// full.
type Bridge struct {
	mu     sync.Mutex
	latest *session.Snapshot

	wake chan struct{}
	logs chan string
	done chan struct{}
	once sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		logs: make(chan string, logQueueSize),
		done: make(chan struct{}),
	}
}

// Snapshot is a session.Listener.
func (b *Bridge) Snapshot(s session.Snapshot) {
	b.mu.Lock()
	if b.latest == nil || s.Version > b.latest.Version {
		b.latest = &s
	}
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Write makes the bridge usable as a log sink. Each call is one line.
func (b *Bridge) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	select {
	case b.logs <- line:
	default:
	}
	return len(p), nil
}

// Attach starts forwarding to p until Close.
func (b *Bridge) Attach(p *tea.Program) {
	go func() {
		for {
			select {
			case <-b.done:
				return
			case <-b.wake:
				b.mu.Lock()
				s := b.latest
				b.latest = nil
				b.mu.Unlock()
				if s != nil {
					p.Send(snapshotMsg(*s))
				}
			case line := <-b.logs:
				p.Send(logLineMsg(line))
			}
		}
	}()
}

func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}
