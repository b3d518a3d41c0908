package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/models"
)

// ProcedureFilter narrows procedure list queries.
type ProcedureFilter struct {
	Page     int
	PageSize int
	Search   string
	Category string
	Status   string
}

// ProcedureRepository handles persistence for procedures and their
// assignments.
type ProcedureRepository interface {
	Create(ctx context.Context, procedure *models.Procedure) error
	GetByID(ctx context.Context, id uint) (models.Procedure, error)
	List(ctx context.Context, filter ProcedureFilter) ([]models.Procedure, int64, error)
	Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Procedure, error)
	Delete(ctx context.Context, id uint) error
	Assign(ctx context.Context, assignment *models.ProcedureAssignment) error
	ListAssignmentsByUser(ctx context.Context, userID uint) ([]models.ProcedureAssignment, error)
	ListAssignedUserIDs(ctx context.Context, procedureID uint) ([]uint, error)
}

type procedureRepository struct {
	db *gorm.DB
}

// NewProcedureRepository constructs the procedure repository.
func NewProcedureRepository(db *gorm.DB) ProcedureRepository {
	return &procedureRepository{db: db}
}

func (r *procedureRepository) Create(ctx context.Context, procedure *models.Procedure) error {
	return r.db.WithContext(ctx).Create(procedure).Error
}

func (r *procedureRepository) GetByID(ctx context.Context, id uint) (models.Procedure, error) {
	var procedure models.Procedure
	if err := r.db.WithContext(ctx).First(&procedure, id).Error; err != nil {
		return models.Procedure{}, err
	}
	return procedure, nil
}

func (r *procedureRepository) List(ctx context.Context, filter ProcedureFilter) ([]models.Procedure, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Procedure{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ?", pattern)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var procedures []models.Procedure
	if err := query.Order("created_at DESC").Find(&procedures).Error; err != nil {
		return nil, 0, err
	}

	return procedures, total, nil
}

func (r *procedureRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) (models.Procedure, error) {
	result := r.db.WithContext(ctx).Model(&models.Procedure{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return models.Procedure{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Procedure{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *procedureRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("procedure_id = ?", id).Delete(&models.ProcedureAssignment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Procedure{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *procedureRepository) Assign(ctx context.Context, assignment *models.ProcedureAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *procedureRepository) ListAssignmentsByUser(ctx context.Context, userID uint) ([]models.ProcedureAssignment, error) {
	var assignments []models.ProcedureAssignment
	if err := r.db.WithContext(ctx).
		Preload("Procedure").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *procedureRepository) ListAssignedUserIDs(ctx context.Context, procedureID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.ProcedureAssignment{}).
		Where("procedure_id = ?", procedureID).
		Distinct().
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
