package playback_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
)

var errPlayFailed = errors.New("play failed")

type fakeGuild struct {
	disconnected bool
	playing      bool
	paused       bool
	finishAt     time.Time
}

// fakeTransport records calls and counts a Play issued while a previous
// source is still active, which only happens with two drivers alive.
type fakeTransport struct {
	mu       sync.Mutex
	guilds   map[string]*fakeGuild
	trailing time.Duration
	failing  map[string]bool

	plays     []string
	reconnect []bool
	stops     int
	pauses    int
	resumes   int
	overlaps  int

	playCh chan string

	// Gated calls block until the gate is closed; blocked reports entry
	playGates   map[string]chan struct{}
	connectGate chan struct{}
	blocked     chan string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		guilds:  make(map[string]*fakeGuild),
		failing: make(map[string]bool),
		playCh:  make(chan string, 1024),
		blocked: make(chan string, 16),

		playGates: make(map[string]chan struct{}),
	}
}

func (f *fakeTransport) guild(guildID string) *fakeGuild {
	g, ok := f.guilds[guildID]
	if !ok {
		g = &fakeGuild{}
		f.guilds[guildID] = g
	}
	return g
}

func (f *fakeTransport) active(g *fakeGuild) bool {
	return g.playing && time.Now().Before(g.finishAt)
}

func (f *fakeTransport) IsConnected(guildID string) bool {
	f.mu.Lock()
	gate := f.connectGate
	f.connectGate = nil
	f.mu.Unlock()

	if gate != nil {
		f.blocked <- "IsConnected"
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.guild(guildID).disconnected
}

func (f *fakeTransport) Connect(guildID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guild(guildID).disconnected = false
	return nil
}

func (f *fakeTransport) Disconnect(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.guild(guildID)
	g.disconnected = true
	g.playing = false
	return nil
}

func (f *fakeTransport) Play(guildID, audioPath string, reconnectOnStall bool) error {
	f.mu.Lock()
	gate := f.playGates[audioPath]
	delete(f.playGates, audioPath)
	f.mu.Unlock()

	if gate != nil {
		f.blocked <- audioPath
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[audioPath] {
		return errPlayFailed
	}

	g := f.guild(guildID)
	if f.active(g) {
		f.overlaps++
	}
	g.playing = true
	g.paused = false
	g.finishAt = time.Now().Add(f.trailing)

	f.plays = append(f.plays, audioPath)
	f.reconnect = append(f.reconnect, reconnectOnStall)
	f.playCh <- audioPath
	return nil
}

func (f *fakeTransport) Stop(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.guild(guildID)
	g.playing = false
	g.paused = false
	f.stops++
	return nil
}

func (f *fakeTransport) Pause(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guild(guildID).paused = true
	f.pauses++
	return nil
}

func (f *fakeTransport) Resume(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guild(guildID).paused = false
	f.resumes++
	return nil
}

func (f *fakeTransport) IsPlaying(guildID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active(f.guild(guildID))
}

func (f *fakeTransport) IsPaused(guildID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := f.guild(guildID)
	return f.active(g) && g.paused
}

func (f *fakeTransport) ChannelOccupancy(guildID, channelID string) int {
	return 1
}

// holdPlaying keeps every source reported as playing until stopped
func (f *fakeTransport) holdPlaying() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trailing = time.Hour
}

func (f *fakeTransport) setConnected(guildID string, connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guild(guildID).disconnected = !connected
}

func (f *fakeTransport) failOn(audioPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[audioPath] = true
}

// gatePlay makes the next Play of audioPath block until the returned gate is closed
func (f *fakeTransport) gatePlay(audioPath string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.playGates[audioPath] = gate
	return gate
}

// gateConnected makes the next IsConnected call block until the returned gate is closed
func (f *fakeTransport) gateConnected() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.connectGate = gate
	return gate
}

func (f *fakeTransport) waitBlocked(t *testing.T, expected string) {
	t.Helper()
	select {
	case got := <-f.blocked:
		if got != expected {
			t.Fatalf("Expected %s to block, got %s", expected, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for %s to block", expected)
	}
}

func (f *fakeTransport) snapshot() (plays []string, stops, pauses, resumes, overlaps int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plays = append([]string(nil), f.plays...)
	return plays, f.stops, f.pauses, f.resumes, f.overlaps
}

func (f *fakeTransport) waitPlay(t *testing.T, expected string) {
	t.Helper()
	select {
	case got := <-f.playCh:
		if got != expected {
			t.Fatalf("Expected %q to play, got %q", expected, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for %q to play", expected)
	}
}

func (f *fakeTransport) expectNoPlay(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case got := <-f.playCh:
		t.Fatalf("Unexpected play of %q", got)
	case <-time.After(within):
	}
}

type fakeNotifier struct {
	ch chan *entities.PlayItem
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan *entities.PlayItem, 64)}
}

func (n *fakeNotifier) NotifyNowPlaying(item *entities.PlayItem) error {
	n.ch <- item
	return nil
}

type fakeRecorder struct {
	ch chan *entities.PlayItem
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{ch: make(chan *entities.PlayItem, 64)}
}

func (r *fakeRecorder) RecordPlay(ctx context.Context, item *entities.PlayItem) error {
	r.ch <- item
	return nil
}

func localItem(path string, d time.Duration) *entities.PlayItem {
	return entities.NewLocalItem(path, d, entities.Requester{GuildID: "g1", Username: "tester"})
}

func resolvedItem(path string, d time.Duration) *entities.PlayItem {
	return entities.NewResolvedItem(path, d, entities.Requester{GuildID: "g1", Username: "tester"},
		valueobjects.MediaInfo{Title: "title " + path, SourceURL: "https://example.com/" + path})
}

func waitDone(t *testing.T, done <-chan struct{}, within time.Duration) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(within):
		t.Fatal("Timeout waiting for session to expire")
	}
}
