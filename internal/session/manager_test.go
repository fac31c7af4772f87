package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"terminal-coder/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeMultiplexer struct {
	mu       sync.Mutex
	panes    map[SlotKind]bool
	busy     map[SlotKind]bool
	captured map[SlotKind]string
	sentKeys []string
	sent     []string
}

func newFakeMultiplexer() *fakeMultiplexer {
	return &fakeMultiplexer{
		panes:    map[SlotKind]bool{SlotCoding: true, SlotReview: true},
		busy:     map[SlotKind]bool{},
		captured: map[SlotKind]string{},
	}
}

func (f *fakeMultiplexer) EnsureSession(ctx context.Context) error { return nil }
func (f *fakeMultiplexer) AllocatePane(slot SlotKind) error {
	if !f.panes[slot] {
		return errNoPane
	}
	return nil
}
func (f *fakeMultiplexer) Send(ctx context.Context, slot SlotKind, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, command)
	f.busy[slot] = true
	return nil
}
func (f *fakeMultiplexer) SendKeys(ctx context.Context, slot SlotKind, keys string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentKeys = append(f.sentKeys, keys)
	return nil
}
func (f *fakeMultiplexer) IsBusy(ctx context.Context, slot SlotKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy[slot], nil
}
func (f *fakeMultiplexer) CaptureOutput(ctx context.Context, slot SlotKind, lines int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captured[slot], nil
}
func (f *fakeMultiplexer) PanePID(ctx context.Context, slot SlotKind) (int, error) {
	return 4242, nil
}

func (f *fakeMultiplexer) finish(slot SlotKind, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[slot] = false
	f.captured[slot] = "some output\nexit code: " + strconv.Itoa(exitCode)
}

var errNoPane = errors.New("pane unavailable")

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]core.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]core.Session{}}
}

func (s *fakeSessionStore) CreateSession(sess core.Session) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Status = core.SessionStatusPending
	s.sessions[sess.ID] = sess
	return sess, nil
}
func (s *fakeSessionStore) GetSession(id string) (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id], nil
}
func (s *fakeSessionStore) GetActiveSessions() ([]core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Session
	for _, sess := range s.sessions {
		if sess.Status == core.SessionStatusRunning || sess.Status == core.SessionStatusPending {
			out = append(out, sess)
		}
	}
	return out, nil
}
func (s *fakeSessionStore) UpdateSessionStatus(id string, status core.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	sess.Status = status
	s.sessions[id] = sess
	return nil
}
func (s *fakeSessionStore) UpdateSessionStarted(id string, pane string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	sess.Status = core.SessionStatusRunning
	sess.Pane = pane
	sess.PID = pid
	s.sessions[id] = sess
	return nil
}
func (s *fakeSessionStore) UpdateSessionCompleted(id string, exitCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	sess.Status = core.SessionStatusCompleted
	if exitCode != 0 {
		sess.Status = core.SessionStatusFailed
	}
	sess.ExitCode = &exitCode
	s.sessions[id] = sess
	return nil
}
func (s *fakeSessionStore) UpdateSessionError(id string, errorContext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	sess.Status = core.SessionStatusFailed
	sess.ErrorContext = errorContext
	s.sessions[id] = sess
	return nil
}

func TestSpawnCreatesRunningSession(t *testing.T) {
	mux := newFakeMultiplexer()
	store := newFakeSessionStore()
	mgr := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})

	sess, err := mgr.Spawn(context.Background(), core.Task{ID: "t1", TaskType: core.TaskTypeCoding}, "/tmp/brief.md")
	require.NoError(t, err)
	require.Equal(t, core.SessionStatusRunning, sess.Status)
	require.True(t, mgr.HasActiveCoding())
	require.False(t, mgr.HasActiveReview())
	require.Len(t, mux.sent, 1)
}

func TestCheckActiveDetectsCompletion(t *testing.T) {
	mux := newFakeMultiplexer()
	store := newFakeSessionStore()
	mgr := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})

	sess, err := mgr.Spawn(context.Background(), core.Task{ID: "t1", TaskType: core.TaskTypeCoding}, "/tmp/brief.md")
	require.NoError(t, err)

	mux.finish(SlotCoding, 0)

	results, err := mgr.CheckActive(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Exited)
	require.Equal(t, 0, results[0].ExitCode)
	require.False(t, mgr.HasActiveCoding())

	stored, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, core.SessionStatusCompleted, stored.Status)
}

func TestCheckActiveDetectsFailureExitCode(t *testing.T) {
	mux := newFakeMultiplexer()
	store := newFakeSessionStore()
	mgr := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})

	_, err := mgr.Spawn(context.Background(), core.Task{ID: "t1", TaskType: core.TaskTypeReview}, "/tmp/brief.md")
	require.NoError(t, err)
	require.True(t, mgr.HasActiveReview())

	mux.finish(SlotReview, 1)

	results, err := mgr.CheckActive(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, results[0].ExitCode)
}

func TestKillSessionForced(t *testing.T) {
	mux := newFakeMultiplexer()
	store := newFakeSessionStore()
	mgr := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})

	sess, err := mgr.Spawn(context.Background(), core.Task{ID: "t1", TaskType: core.TaskTypeCoding}, "/tmp/brief.md")
	require.NoError(t, err)

	require.NoError(t, mgr.KillSession(context.Background(), sess.ID, true))
	require.Len(t, mux.sentKeys, 1)
	require.Equal(t, "C-c", mux.sentKeys[0])

	stored, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, core.SessionStatusKilled, stored.Status)
}

func TestKillByRecordWorksWithoutActiveTracking(t *testing.T) {
	mux := newFakeMultiplexer()
	store := newFakeSessionStore()
	spawner := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})

	sess, err := spawner.Spawn(context.Background(), core.Task{ID: "t1", TaskType: core.TaskTypeCoding}, "/tmp/brief.md")
	require.NoError(t, err)

	stored, err := store.GetSession(sess.ID)
	require.NoError(t, err)

	// A second Manager, simulating a separate `tc kill` process that never
	// spawned this session and so has nothing in its own active map.
	killer := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})
	require.NoError(t, killer.KillByRecord(context.Background(), stored, true))

	reloaded, err := store.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, core.SessionStatusKilled, reloaded.Status)
}

func TestKillByRecordRejectsUnrecognizedPane(t *testing.T) {
	mux := newFakeMultiplexer()
	store := newFakeSessionStore()
	mgr := NewManager(mux, store, Config{LogsDir: t.TempDir(), ProjectDir: "/tmp/demo"})

	err := mgr.KillByRecord(context.Background(), core.Session{ID: "s1", Pane: "not-a-slot"}, true)
	require.Error(t, err)
}

func TestParseExitCode(t *testing.T) {
	require.Equal(t, 0, parseExitCode("hello\nexit code: 0\n"))
	require.Equal(t, 137, parseExitCode("some log line\nexit code: 137"))
	require.Equal(t, 0, parseExitCode("no trailer here"))
}
