package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements escrow.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByAddress finds an invoice record by its derived address
func (r *GormInvoiceRepository) FindByAddress(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "address = ?", addr.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByBusiness finds the live invoice owned by a business identity
func (r *GormInvoiceRepository) FindByBusiness(ctx context.Context, business valueobject.Identity) (*escrow.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "business = ?", business.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByStatus pages through invoices in a lifecycle state, newest first
func (r *GormInvoiceRepository) FindByStatus(ctx context.Context, status escrow.InvoiceStatus, limit, offset int) ([]*escrow.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("status = ?", status.String())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoiceModels []models.InvoiceModel
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]*escrow.Invoice, 0, len(invoiceModels))
	for i := range invoiceModels {
		inv, err := invoiceModels[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, nil
}

// Create inserts a new invoice record
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *escrow.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update saves the invoice's current state
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *escrow.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("address = ?", model.Address).
		Updates(map[string]any{
			"investor":   model.Investor,
			"mint":       model.Mint,
			"sale_price": model.SalePrice,
			"status":     model.Status,
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

// Delete removes the invoice record, reclaiming its address
func (r *GormInvoiceRepository) Delete(ctx context.Context, addr valueobject.Address) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "address = ?", addr.String())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormInvoiceRepository implements escrow.InvoiceRepository
var _ escrow.InvoiceRepository = (*GormInvoiceRepository)(nil)
