package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
	"github.com/factorline/backend/internal/infrastructure/persistence/models"
)

// GormTokenAccountRepository implements token.AccountRepository using GORM
type GormTokenAccountRepository struct {
	db *gorm.DB
}

// NewGormTokenAccountRepository creates a new GormTokenAccountRepository
func NewGormTokenAccountRepository(db *gorm.DB) *GormTokenAccountRepository {
	return &GormTokenAccountRepository{db: db}
}

// FindByAddress finds an account by its derived address
func (r *GormTokenAccountRepository) FindByAddress(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	return r.findByAddress(ctx, addr, false)
}

// FindByAddressForUpdate locks the account row for the ambient transaction.
// SQLite ignores row locks; its writer lock covers the same guarantee.
func (r *GormTokenAccountRepository) FindByAddressForUpdate(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	return r.findByAddress(ctx, addr, true)
}

func (r *GormTokenAccountRepository) findByAddress(ctx context.Context, addr valueobject.Address, forUpdate bool) (*token.Account, error) {
	query := r.db.WithContext(ctx)
	if forUpdate && query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.TokenAccountModel
	if err := query.First(&model, "address = ?", addr.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByOwner returns all accounts held by an owner identity
func (r *GormTokenAccountRepository) FindByOwner(ctx context.Context, owner valueobject.Identity) ([]*token.Account, error) {
	var accountModels []models.TokenAccountModel
	if err := r.db.WithContext(ctx).
		Where("owner = ?", owner.String()).
		Order("created_at ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]*token.Account, 0, len(accountModels))
	for i := range accountModels {
		acct, err := accountModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// Create inserts a new account
func (r *GormTokenAccountRepository) Create(ctx context.Context, acct *token.Account) error {
	model := models.TokenAccountModelFromDomain(acct)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update saves the account's current balance
func (r *GormTokenAccountRepository) Update(ctx context.Context, acct *token.Account) error {
	model := models.TokenAccountModelFromDomain(acct)
	result := r.db.WithContext(ctx).
		Model(&models.TokenAccountModel{}).
		Where("address = ?", model.Address).
		Updates(map[string]any{
			"balance":    model.Balance,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormTokenAccountRepository implements token.AccountRepository
var _ token.AccountRepository = (*GormTokenAccountRepository)(nil)
