package repository

import (
	"context"
	"errors"

	"github.com/CodeWithProBrian/Mpesa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateOnce inserts t unless a transaction with the same CheckoutID exists.
// It reports whether a row was written.
func (r *TransactionRepository) CreateOnce(ctx context.Context, t *models.Transaction) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *TransactionRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).Where("checkout_id = ?", checkoutID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) CountByCheckoutID(ctx context.Context, checkoutID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("checkout_id = ?", checkoutID).Count(&n).Error
	return n, err
}
