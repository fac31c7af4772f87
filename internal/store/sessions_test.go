package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

func seedSession(t *testing.T, s *Store, taskID string) core.Session {
	t.Helper()
	sess, err := s.CreateSession(core.Session{TaskID: taskID, SessionType: core.SessionTypeCoding})
	require.NoError(t, err)
	return sess
}

func TestCreateAndGetSession(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)
	sess := seedSession(t, s, tsk.ID)

	require.Equal(t, core.SessionStatusPending, sess.Status)

	fetched, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, tsk.ID, fetched.TaskID)
}

func TestUpdateSessionStartedThenCompleted(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)
	sess := seedSession(t, s, tsk.ID)

	require.NoError(t, s.UpdateSessionStarted(sess.ID, "slot-0", 4242))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.UpdateSessionCompleted(sess.ID, 0))

	fetched, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, core.SessionStatusCompleted, fetched.Status)
	require.Equal(t, "slot-0", fetched.Pane)
	require.Equal(t, 4242, fetched.PID)
	require.NotNil(t, fetched.ExitCode)
	require.Equal(t, 0, *fetched.ExitCode)
	require.NotNil(t, fetched.DurationSecs)
}

func TestUpdateSessionCompletedNonZeroExitIsFailed(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)
	sess := seedSession(t, s, tsk.ID)

	require.NoError(t, s.UpdateSessionStarted(sess.ID, "slot-0", 1))
	require.NoError(t, s.UpdateSessionCompleted(sess.ID, 1))

	fetched, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, core.SessionStatusFailed, fetched.Status)
	require.Equal(t, 1, *fetched.ExitCode)
}

func TestGetActiveSessionsExcludesTerminal(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)

	active := seedSession(t, s, tsk.ID)
	done := seedSession(t, s, tsk.ID)
	require.NoError(t, s.UpdateSessionStarted(done.ID, "slot-1", 2))
	require.NoError(t, s.UpdateSessionCompleted(done.ID, 0))

	sessions, err := s.GetActiveSessions()
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, sess := range sessions {
		ids[sess.ID] = true
	}
	require.True(t, ids[active.ID])
	require.False(t, ids[done.ID])
}

func TestUpdateSessionStatusRejectsInvalidTransition(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	tsk := seedTask(t, s, ph.ID, 0)
	sess := seedSession(t, s, tsk.ID)

	err := s.UpdateSessionStatus(sess.ID, core.SessionStatusCompleted)
	require.Error(t, err)

	unchanged, getErr := s.GetSession(sess.ID)
	require.NoError(t, getErr)
	require.Equal(t, core.SessionStatusPending, unchanged.Status)
}
