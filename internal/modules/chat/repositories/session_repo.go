package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	// HistoryWindow bounds historical session queries.
	HistoryWindow = 45 * 24 * time.Hour
	// HistoryLimit caps full-log historical listings.
	HistoryLimit = 50
	// PreviewLimit caps the live dashboard feed.
	PreviewLimit = 20
)

type SessionRepo interface {
	// AppendMessage is the single logical append: create the session if
	// absent, insert the message with a store-assigned sequence and
	// timestamp, and bump the session's last-message time and seq. The
	// whole operation runs in one transaction; a failed append is
	// returned to the caller, never swallowed, because a lost message
	// breaks the session's ordering invariant.
	AppendMessage(ctx context.Context, businessID, sessionID string, msg *models.ChatMessage) error

	// SetAgentJoined flips the one-way takeover flag. The write is
	// conditional on the flag being unset, so exactly one caller wins
	// when joins race; joined reports whether this call performed the
	// transition. The flag never reverts.
	SetAgentJoined(ctx context.Context, businessID, sessionID string) (joined bool, err error)

	GetSession(ctx context.Context, businessID, sessionID string) (*models.ChatSession, error)

	// ListMessages returns the session's log in append order.
	ListMessages(ctx context.Context, businessID, sessionID string) ([]models.ChatMessage, error)

	// ListRecentSessions returns sessions active within the window,
	// newest first, with their full message logs in append order.
	ListRecentSessions(ctx context.Context, businessID string) ([]models.ChatSession, error)

	// ListSessionPreviews is the live-feed projection: capped at 20
	// sessions, each carrying only its most recent message.
	ListSessionPreviews(ctx context.Context, businessID string) ([]models.SessionPreview, error)

	// CountMessages counts every stored message across all tenants.
	CountMessages(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db    *gorm.DB
	usage UsageRepo
}

func NewSessionRepo(db *gorm.DB, usage UsageRepo) SessionRepo {
	return &sessionRepo{db: db, usage: usage}
}

func (r *sessionRepo) AppendMessage(ctx context.Context, businessID, sessionID string, msg *models.ChatMessage) error {
	writes := int64(1)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, created, err := ensureSession(tx, businessID, sessionID)
		if err != nil {
			return err
		}
		if created {
			writes++
		}

		now := time.Now()
		msg.ChatSessionID = sess.ID
		msg.Seq = sess.Seq + 1
		msg.Timestamp = now

		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}

		// lastMessageTime must track every append, including system and
		// agent messages, so session-list ordering stays accurate after
		// a handoff. StartTime is repaired here if a previous partial
		// append left it behind the log.
		update := map[string]interface{}{
			"last_message_time": now,
			"seq":               gorm.Expr("seq + 1"),
		}
		if sess.StartTime.IsZero() {
			update["start_time"] = now
		}
		if err := tx.Model(&models.ChatSession{}).Where("id = ?", sess.ID).Updates(update).Error; err != nil {
			return fmt.Errorf("failed to update session metadata: %w", err)
		}
		writes++
		return nil
	})
	if err != nil {
		return err
	}

	r.usage.Record(businessID, models.UsageDelta{Reads: 1, Writes: writes})
	return nil
}

// ensureSession loads the session row, creating it when absent. The
// conflict-ignoring insert keeps concurrent first appends idempotent:
// however the sub-steps interleave, exactly one session row exists
// afterwards.
func ensureSession(tx *gorm.DB, businessID, sessionID string) (*models.ChatSession, bool, error) {
	var sess models.ChatSession
	err := tx.Where("business_id = ? AND session_id = ?", businessID, sessionID).First(&sess).Error
	if err == nil {
		return &sess, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	now := time.Now()
	fresh := models.ChatSession{
		BusinessID:      businessID,
		SessionID:       sessionID,
		StartTime:       now,
		LastMessageTime: now,
		AgentJoined:     false,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "session_id"}},
		DoNothing: true,
	}).Create(&fresh)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", res.Error)
	}
	created := res.RowsAffected > 0

	if err := tx.Where("business_id = ? AND session_id = ?", businessID, sessionID).First(&sess).Error; err != nil {
		return nil, false, err
	}
	return &sess, created, nil
}

func (r *sessionRepo) SetAgentJoined(ctx context.Context, businessID, sessionID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ChatSession{}).
		Where("business_id = ? AND session_id = ? AND agent_joined = ?", businessID, sessionID, false).
		Update("agent_joined", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		r.usage.Record(businessID, models.UsageDelta{Writes: 1})
		return true, nil
	}

	// Zero rows means either the flag was already set or the session
	// does not exist. Distinguish the two so callers can surface a
	// missing session while treating a lost race as a no-op.
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChatSession{}).
		Where("business_id = ? AND session_id = ?", businessID, sessionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}

	r.usage.Record(businessID, models.UsageDelta{Reads: 1})
	return false, nil
}

func (r *sessionRepo) GetSession(ctx context.Context, businessID, sessionID string) (*models.ChatSession, error) {
	var sess models.ChatSession
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND session_id = ?", businessID, sessionID).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.usage.Record(businessID, models.UsageDelta{Reads: 1})
	return &sess, nil
}

func (r *sessionRepo) ListMessages(ctx context.Context, businessID, sessionID string) ([]models.ChatMessage, error) {
	sess, err := r.GetSession(ctx, businessID, sessionID)
	if err != nil {
		return nil, err
	}

	var messages []models.ChatMessage
	err = r.db.WithContext(ctx).
		Where("chat_session_id = ?", sess.ID).
		Order("seq ASC, timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	r.usage.Record(businessID, models.UsageDelta{Reads: int64(len(messages))})
	return messages, nil
}

func (r *sessionRepo) ListRecentSessions(ctx context.Context, businessID string) ([]models.ChatSession, error) {
	since := time.Now().Add(-HistoryWindow)

	var sessions []models.ChatSession
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND last_message_time >= ?", businessID, since).
		Order("last_message_time DESC").
		Limit(HistoryLimit).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC, timestamp ASC")
		}).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	reads := int64(1)
	for _, s := range sessions {
		reads += 1 + int64(len(s.Messages))
	}
	r.usage.Record(businessID, models.UsageDelta{Reads: reads})
	return sessions, nil
}

func (r *sessionRepo) ListSessionPreviews(ctx context.Context, businessID string) ([]models.SessionPreview, error) {
	since := time.Now().Add(-HistoryWindow)

	var sessions []models.ChatSession
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND last_message_time >= ?", businessID, since).
		Order("last_message_time DESC").
		Limit(PreviewLimit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	reads := int64(1 + len(sessions))
	previews := make([]models.SessionPreview, 0, len(sessions))
	for _, s := range sessions {
		preview := models.SessionPreview{
			SessionID:       s.SessionID,
			StartTime:       s.StartTime,
			LastMessageTime: s.LastMessageTime,
			AgentJoined:     s.AgentJoined,
			Seq:             s.Seq,
		}

		var last models.ChatMessage
		err := r.db.WithContext(ctx).
			Where("chat_session_id = ?", s.ID).
			Order("seq DESC, timestamp DESC").
			First(&last).Error
		if err == nil {
			preview.LastMessage = &last
			reads++
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		previews = append(previews, preview)
	}

	r.usage.Record(businessID, models.UsageDelta{Reads: reads})
	return previews, nil
}

func (r *sessionRepo) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChatMessage{}).Count(&count).Error
	return count, err
}
