package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCreatesSessionOnce(t *testing.T) {
	db := newTestDB(t)
	usage := &usageRecorder{}
	repo := NewSessionRepo(db, usage)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		msg := &models.ChatMessage{Text: fmt.Sprintf("msg %d", i), Sender: models.SenderUser}
		require.NoError(t, repo.AppendMessage(ctx, "green-dental-pune", "sess-1", msg))
	}

	var sessionCount int64
	require.NoError(t, db.Model(&models.ChatSession{}).Count(&sessionCount).Error)
	assert.Equal(t, int64(1), sessionCount)

	sess, err := repo.GetSession(ctx, "green-dental-pune", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sess.Seq)
	assert.False(t, sess.AgentJoined)
	assert.False(t, sess.StartTime.IsZero())
	assert.False(t, sess.LastMessageTime.Before(sess.StartTime))
}

func TestConcurrentFirstAppendsCreateOneSession(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	const appends = 12
	var wg sync.WaitGroup
	errs := make(chan error, appends)
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := &models.ChatMessage{Text: fmt.Sprintf("msg %d", i), Sender: models.SenderUser}
			errs <- repo.AppendMessage(ctx, "biz", "sess", msg)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var sessionCount int64
	require.NoError(t, db.Model(&models.ChatSession{}).Count(&sessionCount).Error)
	assert.Equal(t, int64(1), sessionCount)

	sess, err := repo.GetSession(ctx, "biz", "sess")
	require.NoError(t, err)
	assert.Equal(t, int64(appends), sess.Seq)

	// no lost appends, no duplicated sequence numbers
	messages, err := repo.ListMessages(ctx, "biz", "sess")
	require.NoError(t, err)
	require.Len(t, messages, appends)
	seen := map[int64]bool{}
	for _, msg := range messages {
		assert.False(t, seen[msg.Seq])
		seen[msg.Seq] = true
		assert.GreaterOrEqual(t, msg.Seq, int64(1))
		assert.LessOrEqual(t, msg.Seq, int64(appends))
	}
}

func TestConcurrentAppendsIsolateSessions(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	const perSession = 6
	var wg sync.WaitGroup
	errs := make(chan error, perSession*2)
	for _, sessionID := range []string{"s1", "s2"} {
		for i := 0; i < perSession; i++ {
			wg.Add(1)
			go func(sessionID string, i int) {
				defer wg.Done()
				msg := &models.ChatMessage{Text: fmt.Sprintf("%s msg %d", sessionID, i), Sender: models.SenderUser}
				errs <- repo.AppendMessage(ctx, "biz", sessionID, msg)
			}(sessionID, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var sessionCount int64
	require.NoError(t, db.Model(&models.ChatSession{}).Count(&sessionCount).Error)
	assert.Equal(t, int64(2), sessionCount)

	for _, sessionID := range []string{"s1", "s2"} {
		sess, err := repo.GetSession(ctx, "biz", sessionID)
		require.NoError(t, err)
		assert.Equal(t, int64(perSession), sess.Seq)

		messages, err := repo.ListMessages(ctx, "biz", sessionID)
		require.NoError(t, err)
		assert.Len(t, messages, perSession)
	}
}

func TestAppendAssignsMonotonicSeq(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	senders := []string{models.SenderUser, models.SenderAI, models.SenderUser, models.SenderAgent}
	for i, sender := range senders {
		msg := &models.ChatMessage{Text: fmt.Sprintf("turn %d", i), Sender: sender}
		require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", msg))
		assert.Equal(t, int64(i+1), msg.Seq)
	}

	messages, err := repo.ListMessages(ctx, "biz", "sess")
	require.NoError(t, err)
	require.Len(t, messages, 4)
	for i, msg := range messages {
		assert.Equal(t, int64(i+1), msg.Seq)
		assert.Equal(t, fmt.Sprintf("turn %d", i), msg.Text)
	}
}

func TestAppendMetering(t *testing.T) {
	db := newTestDB(t)
	usage := &usageRecorder{}
	repo := NewSessionRepo(db, usage)
	ctx := context.Background()

	// first append creates the session: 1 read, 3 writes
	require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", &models.ChatMessage{Text: "hi", Sender: models.SenderUser}))
	assert.Equal(t, models.UsageDelta{Reads: 1, Writes: 3}, usage.snapshot())

	// subsequent append reuses the session: 1 read, 2 writes
	usage.reset()
	require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", &models.ChatMessage{Text: "again", Sender: models.SenderAI}))
	assert.Equal(t, models.UsageDelta{Reads: 1, Writes: 2}, usage.snapshot())
}

func TestSetAgentJoined(t *testing.T) {
	db := newTestDB(t)
	usage := &usageRecorder{}
	repo := NewSessionRepo(db, usage)
	ctx := context.Background()

	_, err := repo.SetAgentJoined(ctx, "biz", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", &models.ChatMessage{Text: "hi", Sender: models.SenderUser}))
	usage.reset()

	joined, err := repo.SetAgentJoined(ctx, "biz", "sess")
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, models.UsageDelta{Writes: 1}, usage.snapshot())

	// repeat is a no-op but the flag stays set
	joined, err = repo.SetAgentJoined(ctx, "biz", "sess")
	require.NoError(t, err)
	assert.False(t, joined)
	sess, err := repo.GetSession(ctx, "biz", "sess")
	require.NoError(t, err)
	assert.True(t, sess.AgentJoined)
}

func TestSetAgentJoinedSingleWinner(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", &models.ChatMessage{Text: "hi", Sender: models.SenderUser}))

	const joiners = 8
	results := make(chan bool, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			joined, err := repo.SetAgentJoined(ctx, "biz", "sess")
			assert.NoError(t, err)
			results <- joined
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for joined := range results {
		if joined {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestGetSessionNotFound(t *testing.T) {
	repo := NewSessionRepo(newTestDB(t), &usageRecorder{})
	_, err := repo.GetSession(context.Background(), "biz", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessionPreviews(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	require.NoError(t, repo.AppendMessage(ctx, "biz", "s1", &models.ChatMessage{Text: "first", Sender: models.SenderUser}))
	require.NoError(t, repo.AppendMessage(ctx, "biz", "s1", &models.ChatMessage{Text: "latest in s1", Sender: models.SenderAI}))
	require.NoError(t, repo.AppendMessage(ctx, "biz", "s2", &models.ChatMessage{Text: "only in s2", Sender: models.SenderUser}))
	require.NoError(t, repo.AppendMessage(ctx, "other-biz", "s9", &models.ChatMessage{Text: "foreign", Sender: models.SenderUser}))

	previews, err := repo.ListSessionPreviews(ctx, "biz")
	require.NoError(t, err)
	require.Len(t, previews, 2)

	byID := map[string]models.SessionPreview{}
	for _, p := range previews {
		byID[p.SessionID] = p
	}

	require.NotNil(t, byID["s1"].LastMessage)
	assert.Equal(t, "latest in s1", byID["s1"].LastMessage.Text)
	assert.Equal(t, int64(2), byID["s1"].Seq)
	require.NotNil(t, byID["s2"].LastMessage)
	assert.Equal(t, "only in s2", byID["s2"].LastMessage.Text)
}

func TestListSessionPreviewsCap(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	for i := 0; i < PreviewLimit+5; i++ {
		sessionID := fmt.Sprintf("s%02d", i)
		require.NoError(t, repo.AppendMessage(ctx, "biz", sessionID, &models.ChatMessage{Text: "hi", Sender: models.SenderUser}))
	}

	previews, err := repo.ListSessionPreviews(ctx, "biz")
	require.NoError(t, err)
	assert.Len(t, previews, PreviewLimit)
}

func TestListRecentSessionsIncludesFullLogs(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", &models.ChatMessage{Text: "q", Sender: models.SenderUser}))
	require.NoError(t, repo.AppendMessage(ctx, "biz", "sess", &models.ChatMessage{Text: "a", Sender: models.SenderAI}))

	sessions, err := repo.ListRecentSessions(ctx, "biz")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, "q", sessions[0].Messages[0].Text)
	assert.Equal(t, "a", sessions[0].Messages[1].Text)
}

func TestCountMessages(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db, &usageRecorder{})
	ctx := context.Background()

	require.NoError(t, repo.AppendMessage(ctx, "a", "s", &models.ChatMessage{Text: "1", Sender: models.SenderUser}))
	require.NoError(t, repo.AppendMessage(ctx, "b", "s", &models.ChatMessage{Text: "2", Sender: models.SenderUser}))

	count, err := repo.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
