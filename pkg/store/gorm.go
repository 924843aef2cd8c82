package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tibyan/models"
)

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindActiveByTuple(ctx context.Context, ownerID uint, channel, customerID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Preload("Messages").
		Where("owner_id = ? AND channel = ? AND customer_id = ? AND status = ?",
			ownerID, channel, customerID, models.StatusActive).
		Order("start_time DESC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *GormStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return s.db.WithContext(ctx).Create(conv).Error
}

func (s *GormStore) AppendMessageAndUpdate(ctx context.Context, convID uint, msg models.Message, upd AppendUpdate) error {
	msg.ConversationID = convID
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND channel_msg_id = ?", convID, msg.ChannelMsgID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
		}
		fields := map[string]any{
			"summary_positive":       upd.Summary.Positive,
			"summary_negative":       upd.Summary.Negative,
			"summary_neutral":        upd.Summary.Neutral,
			"summary_dominant":       upd.Summary.Dominant,
			"summary_total_messages": upd.Summary.TotalMessages,
			"end_time":               upd.EndTime,
		}
		if upd.CustomerName != "" {
			fields["customer_name"] = upd.CustomerName
		}
		if upd.CustomerPhone != "" {
			fields["customer_phone"] = upd.CustomerPhone
		}
		res := tx.Model(&models.Conversation{}).Where("id = ?", convID).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) GetConversation(ctx context.Context, id uint, ownerID uint) (*models.Conversation, error) {
	q := s.db.WithContext(ctx).Preload("Messages").Where("id = ?", id)
	if ownerID != 0 {
		q = q.Where("owner_id = ?", ownerID)
	}
	var conv models.Conversation
	if err := q.First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (s *GormStore) ListConversations(ctx context.Context, f ListFilter) ([]models.Conversation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Preload("Messages").Order("end_time DESC").Limit(limit)
	q = applyScope(q, f.Scope)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var convs []models.Conversation
	if err := q.Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *GormStore) SearchConversations(ctx context.Context, scope Scope, query string, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	q := s.db.WithContext(ctx).Preload("Messages").
		Where("customer_id LIKE ? OR customer_name LIKE ? OR customer_phone LIKE ?", like, like, like).
		Order("end_time DESC").Limit(limit)
	q = applyScope(q, scope)
	var convs []models.Conversation
	if err := q.Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *GormStore) QueryByScopeAndTimeRange(ctx context.Context, scope Scope, since time.Time) ([]models.Conversation, error) {
	q := s.db.WithContext(ctx).Preload("Messages").Where("start_time >= ?", since)
	q = applyScope(q, scope)
	var convs []models.Conversation
	if err := q.Find(&convs).Error; err != nil {
		return nil, err
	}
	return convs, nil
}

func (s *GormStore) SetStatus(ctx context.Context, id uint, status string) error {
	fields := map[string]any{"status": status}
	if status == models.StatusResolved {
		fields["end_time"] = time.Now()
	}
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetHandled(ctx context.Context, id uint, handled bool, byWhom string, at time.Time) error {
	fields := map[string]any{"handled": handled}
	if handled {
		fields["handled_at"] = at
		fields["handled_by"] = byWhom
	} else {
		fields["handled_at"] = nil
		fields["handled_by"] = ""
	}
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func applyScope(q *gorm.DB, scope Scope) *gorm.DB {
	if scope.OwnerID != 0 {
		q = q.Where("owner_id = ?", scope.OwnerID)
	}
	if scope.Channel != "" {
		q = q.Where("channel = ?", scope.Channel)
	}
	return q
}
