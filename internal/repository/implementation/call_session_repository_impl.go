package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sales-copilot-be/internal/entity"
	"sales-copilot-be/internal/mapper"
	"sales-copilot-be/internal/model"
	"sales-copilot-be/internal/repository/contract"
	"sales-copilot-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CallSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CallSessionMapper
}

func NewCallSessionRepository(db *gorm.DB) contract.CallSessionRepository {
	return &CallSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCallSessionMapper(),
	}
}

func (r *CallSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CallSessionRepositoryImpl) Create(ctx context.Context, session *entity.CallSession) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	created, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*session = *created
	return nil
}

func (r *CallSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CallSession, error) {
	var m model.CallSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *CallSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.CallSession{}).Count(&count).Error
	return count, err
}

func (r *CallSessionRepositoryImpl) UpdateTranscript(ctx context.Context, id uuid.UUID, transcript []entity.Utterance) (bool, error) {
	if transcript == nil {
		transcript = []entity.Utterance{}
	}
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).
		Model(&model.CallSession{}).
		Where("id = ?", id).
		Where("ended_at IS NULL").
		Update("transcript", datatypes.JSON(transcriptJSON))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CallSessionRepositoryImpl) UpdateState(ctx context.Context, id uuid.UUID, fields map[string]string, suggestion *entity.Suggestion) (bool, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return false, err
	}

	updates := map[string]interface{}{
		"extracted_fields": datatypes.JSON(fieldsJSON),
	}
	if suggestion != nil {
		suggestionJSON, err := json.Marshal(suggestion)
		if err != nil {
			return false, err
		}
		updates["last_suggestion"] = datatypes.JSON(suggestionJSON)
	}

	res := r.db.WithContext(ctx).
		Model(&model.CallSession{}).
		Where("id = ?", id).
		Where("ended_at IS NULL").
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CallSessionRepositoryImpl) End(ctx context.Context, id uuid.UUID, summary *entity.CallSummary, endedAt time.Time) (bool, error) {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return false, err
	}

	// The ended_at guard makes a double end a no-op at the storage level,
	// leaving the first summary untouched.
	res := r.db.WithContext(ctx).
		Model(&model.CallSession{}).
		Where("id = ?", id).
		Where("ended_at IS NULL").
		Updates(map[string]interface{}{
			"ended_at": endedAt,
			"summary":  datatypes.JSON(summaryJSON),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
