package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pedidohub/backoffice/internal/domain"
)

type translationRepository struct {
	orm *gorm.DB
}

// NewTranslationRepository returns the PostgreSQL TranslationRepository.
func NewTranslationRepository(store *Store) domain.TranslationRepository {
	return &translationRepository{orm: store.ORM()}
}

func (r *translationRepository) Create(translation domain.Translation) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if translation.ID == "" {
		translation.ID = uuid.NewString()
	}
	row := translationToRow(translation)
	if err := r.orm.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTranslation
		}
		return fmt.Errorf("insert translation: %w", err)
	}
	return nil
}

func (r *translationRepository) Get(id string) (domain.Translation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var row translationRow
	if err := r.orm.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Translation{}, domain.ErrTranslationNotFound
		}
		return domain.Translation{}, fmt.Errorf("select translation: %w", err)
	}
	return row.toDomain(), nil
}

func (r *translationRepository) Lookup(key, languageCode string) (domain.Translation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var row translationRow
	if err := r.orm.WithContext(ctx).
		Where("key = ? AND language_code = ?", key, languageCode).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Translation{}, domain.ErrTranslationNotFound
		}
		return domain.Translation{}, fmt.Errorf("lookup translation: %w", err)
	}
	return row.toDomain(), nil
}

func (r *translationRepository) List(page domain.PageRequest) ([]domain.Translation, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var total int64
	if err := r.orm.WithContext(ctx).Model(&translationRow{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count translations: %w", err)
	}

	norm := page.Normalize()
	var rows []translationRow
	if err := r.orm.WithContext(ctx).
		Order("key ASC, language_code ASC").
		Limit(norm.PerPage).
		Offset(page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list translations: %w", err)
	}

	translations := make([]domain.Translation, 0, len(rows))
	for _, row := range rows {
		translations = append(translations, row.toDomain())
	}
	return translations, total, nil
}

func (r *translationRepository) Update(translation domain.Translation) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := translationToRow(translation)
	res := r.orm.WithContext(ctx).Model(&translationRow{}).Where("id = ?", translation.ID).Updates(map[string]any{
		"key":           row.Key,
		"language_code": row.LanguageCode,
		"value":         row.Value,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domain.ErrDuplicateTranslation
		}
		return fmt.Errorf("update translation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrTranslationNotFound
	}
	return nil
}

var _ domain.TranslationRepository = (*translationRepository)(nil)
