package room

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Repository provides access to room and message storage. All operations
// touch a single room and its owned messages; no cross-room transactions
// exist.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new room repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new room. It fails with ErrRoomExists when the
// human-chosen room id is already taken.
func (r *Repository) Create(ctx context.Context, rec *RoomRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RoomRecord{}).Where("room_id = ?", rec.RoomID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check room id: %w", err)
		}
		if count > 0 {
			return ErrRoomExists
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		return nil
	})
}

// FindByRoomID retrieves a room by its human-chosen id.
func (r *Repository) FindByRoomID(ctx context.Context, roomID string) (*RoomRecord, error) {
	var rec RoomRecord
	if err := r.db.WithContext(ctx).First(&rec, "room_id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}
	return &rec, nil
}

// FindAll retrieves every room row. Used to rehydrate the presence tracker
// after a restart.
func (r *Repository) FindAll(ctx context.Context) ([]RoomRecord, error) {
	var recs []RoomRecord
	if err := r.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return recs, nil
}

// SaveOnlineUsers overwrites the persisted online-users set of a room.
func (r *Repository) SaveOnlineUsers(ctx context.Context, key string, users []string) error {
	result := r.db.WithContext(ctx).
		Model(&RoomRecord{}).
		Where("key = ?", key).
		Update("online_users", users)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to save online users: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Delete removes a room row and all messages it owns in one transaction.
func (r *Repository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_key = ?", key).Delete(&MessageRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		result := tx.Delete(&RoomRecord{}, "key = ?", key)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		return nil
	})
}

// AppendMessage inserts a message at the tail of a room's history. The room
// row is re-checked inside the transaction so a message can never be
// appended to a room that vanished between lookup and append.
func (r *Repository) AppendMessage(ctx context.Context, key string, msg *MessageRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RoomRecord{}).Where("key = ?", key).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check room: %w", err)
		}
		if count == 0 {
			return ErrRoomNotFound
		}
		msg.RoomKey = key
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		return nil
	})
}

// CountMessages returns the number of messages a room owns.
func (r *Repository) CountMessages(ctx context.Context, key string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Where("room_key = ?", key).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// FindMessages returns limit messages starting at offset, in insertion
// order. The (room_key, seq) index keeps this O(limit).
func (r *Repository) FindMessages(ctx context.Context, key string, offset, limit int) ([]MessageRecord, error) {
	var msgs []MessageRecord
	if err := r.db.WithContext(ctx).
		Where("room_key = ?", key).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	return msgs, nil
}
