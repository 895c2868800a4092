// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/utils"
)

// CatalogService manages the category tree, per-category attribute schemas
// and the products validated against them.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

type CreateCategoryRequest struct {
	Name     string     `json:"name" validate:"required,max=100"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Position int        `json:"position"`
}

type CreateAttributeRequest struct {
	Name       string                 `json:"name" validate:"required,max=100"`
	DataType   string                 `json:"data_type" validate:"required,oneof=string number boolean enum"`
	IsRequired bool                   `json:"is_required"`
	Options    map[string]interface{} `json:"options,omitempty"`
	Position   int                    `json:"position"`
}

type CreateProductRequest struct {
	CategoryID  uuid.UUID              `json:"category_id" validate:"required"`
	Title       string                 `json:"title" validate:"required,max=255"`
	Description string                 `json:"description,omitempty"`
	Price       decimal.Decimal        `json:"price"`
	Currency    string                 `json:"currency" validate:"required,currency_code"`
	Stock       int                    `json:"stock" validate:"min=0"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

type UpdateProductRequest struct {
	Title       string                 `json:"title" validate:"required,max=255"`
	Description string                 `json:"description,omitempty"`
	Price       decimal.Decimal        `json:"price"`
	Stock       int                    `json:"stock" validate:"min=0"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	StoreID       *uuid.UUID `json:"store_id,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	PublishedOnly bool       `json:"published_only"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, adminID uuid.UUID, req *CreateCategoryRequest) (*models.Category, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var category *models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.ParentID != nil {
			var parentCount int64
			if err := tx.Model(&models.Category{}).Where("id = ?", *req.ParentID).Count(&parentCount).Error; err != nil {
				return fmt.Errorf("failed to check parent category: %w", err)
			}
			if parentCount == 0 {
				return NewValidationError("parent category does not exist")
			}
		}

		slug := slugify(req.Name)
		var slugTaken int64
		if err := tx.Model(&models.Category{}).Where("slug = ?", slug).Count(&slugTaken).Error; err != nil {
			return fmt.Errorf("failed to check slug: %w", err)
		}
		if slugTaken > 0 {
			return NewValidationError("a category with this name already exists")
		}

		category = &models.Category{
			Name:      req.Name,
			Slug:      slug,
			ParentID:  req.ParentID,
			Position:  req.Position,
			IsVisible: true,
		}

		if err := tx.Create(category).Error; err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}

		recordAudit(tx, adminID, "category.create", "category", &category.ID, nil, map[string]interface{}{
			"name": category.Name,
			"slug": category.Slug,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

// CategoryTree returns the visible root categories with children and
// attribute schemas preloaded.
func (s *CatalogService) CategoryTree(ctx context.Context) ([]models.Category, error) {
	var roots []models.Category
	err := s.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_visible = ?", true).Order("position asc")
		}).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Where("parent_id IS NULL AND is_visible = ?", true).
		Order("position asc").
		Find(&roots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return roots, nil
}

// DeleteCategory removes an empty leaf category. Categories with
// subcategories, products or scoped rules stay in place.
func (s *CatalogService) DeleteCategory(ctx context.Context, categoryID, adminID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("category not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var childCount int64
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", categoryID).Count(&childCount).Error; err != nil {
			return fmt.Errorf("failed to count subcategories: %w", err)
		}
		if childCount > 0 {
			return NewValidationError("category has subcategories and cannot be deleted")
		}

		var productCount int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&productCount).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if productCount > 0 {
			return NewValidationError(fmt.Sprintf("category has %d products and cannot be deleted", productCount))
		}

		var ruleCount int64
		if err := tx.Model(&models.Rule{}).Where("category_id = ?", categoryID).Count(&ruleCount).Error; err != nil {
			return fmt.Errorf("failed to count category rules: %w", err)
		}
		if ruleCount > 0 {
			return NewValidationError("category is referenced by rules and cannot be deleted")
		}

		if err := tx.Where("category_id = ?", categoryID).Delete(&models.AttributeDefinition{}).Error; err != nil {
			return fmt.Errorf("failed to delete category attributes: %w", err)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}

		recordAudit(tx, adminID, "category.delete", "category", &categoryID, map[string]interface{}{
			"name": category.Name,
			"slug": category.Slug,
		}, nil)
		return nil
	})
}

// AddAttribute defines an attribute on a category. Products created in the
// category afterwards are validated against it.
func (s *CatalogService) AddAttribute(ctx context.Context, categoryID, adminID uuid.UUID, req *CreateAttributeRequest) (*models.AttributeDefinition, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.DataType == "enum" {
		values, ok := req.Options["values"].([]interface{})
		if !ok || len(values) == 0 {
			return nil, NewValidationError("enum attributes require a non-empty options.values list")
		}
	}

	var attr *models.AttributeDefinition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("category not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		var nameTaken int64
		if err := tx.Model(&models.AttributeDefinition{}).
			Where("category_id = ? AND name = ?", categoryID, req.Name).
			Count(&nameTaken).Error; err != nil {
			return fmt.Errorf("failed to check attribute name: %w", err)
		}
		if nameTaken > 0 {
			return NewValidationError("an attribute with this name already exists on the category")
		}

		attr = &models.AttributeDefinition{
			CategoryID: categoryID,
			Name:       req.Name,
			DataType:   req.DataType,
			IsRequired: req.IsRequired,
			Options:    models.JSONB(req.Options),
			Position:   req.Position,
		}

		if err := tx.Create(attr).Error; err != nil {
			return fmt.Errorf("failed to create attribute: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return attr, nil
}

// CreateProduct adds an unpublished product to the seller's store, validating
// its attributes against the category's schema.
func (s *CatalogService) CreateProduct(ctx context.Context, storeID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !req.Price.IsPositive() {
		return nil, NewValidationError("price must be positive")
	}

	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store models.Store
		if err := tx.First(&store, storeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("store not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if store.Status != models.StoreStatusActive {
			return NewValidationError("products can only be added to active stores")
		}

		if errs := s.validateAttributes(tx, req.CategoryID, req.Attributes); len(errs) > 0 {
			return NewValidationError(errs...)
		}

		product = &models.Product{
			StoreID:     storeID,
			CategoryID:  req.CategoryID,
			Title:       req.Title,
			Description: req.Description,
			Price:       req.Price,
			Currency:    req.Currency,
			Stock:       req.Stock,
			Attributes:  models.JSONB(req.Attributes),
			IsPublished: false,
		}

		if err := tx.Create(product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, productID, storeID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !req.Price.IsPositive() {
		return nil, NewValidationError("price must be positive")
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("product not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if product.StoreID != storeID {
			return errors.New("not authorized to update this product")
		}

		if errs := s.validateAttributes(tx, product.CategoryID, req.Attributes); len(errs) > 0 {
			return NewValidationError(errs...)
		}

		product.Title = req.Title
		product.Description = req.Description
		product.Price = req.Price
		product.Stock = req.Stock
		product.Attributes = models.JSONB(req.Attributes)

		if err := tx.Save(&product).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// PublishProduct makes the product visible to buyers. A product needs at
// least one approved photo before it can go live.
func (s *CatalogService) PublishProduct(ctx context.Context, productID, storeID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("product not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if product.StoreID != storeID {
			return errors.New("not authorized to publish this product")
		}

		if product.IsPublished {
			return NewValidationError("product is already published")
		}

		var approvedPhotos int64
		if err := tx.Model(&models.ProductPhoto{}).
			Where("product_id = ? AND moderation_status = ?", productID, models.ModerationStatusApproved).
			Count(&approvedPhotos).Error; err != nil {
			return fmt.Errorf("failed to count photos: %w", err)
		}
		if approvedPhotos == 0 {
			return NewValidationError("product needs at least one approved photo before publishing")
		}

		product.IsPublished = true
		if err := tx.Save(&product).Error; err != nil {
			return fmt.Errorf("failed to publish product: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (s *CatalogService) UnpublishProduct(ctx context.Context, productID, storeID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND store_id = ?", productID, storeID).
		Update("is_published", false)
	if result.Error != nil {
		return fmt.Errorf("failed to unpublish product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("product not found")
	}
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Store").
		Preload("Photos", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("product not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (s *CatalogService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if params.StoreID != nil {
		query = query.Where("store_id = ?", *params.StoreID)
	}
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}
	if params.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "title", "price", "stock"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return products, total, nil
}

// validateAttributes checks the supplied attribute values against the
// category's schema, collecting every failure.
func (s *CatalogService) validateAttributes(tx *gorm.DB, categoryID uuid.UUID, values map[string]interface{}) []string {
	var defs []models.AttributeDefinition
	if err := tx.Where("category_id = ?", categoryID).Find(&defs).Error; err != nil {
		return []string{"failed to load category attributes"}
	}

	var catCount int64
	tx.Model(&models.Category{}).Where("id = ?", categoryID).Count(&catCount)
	if catCount == 0 {
		return []string{"the referenced category does not exist"}
	}

	var errs []string
	known := make(map[string]models.AttributeDefinition, len(defs))
	for _, def := range defs {
		known[def.Name] = def
		value, present := values[def.Name]
		if !present {
			if def.IsRequired {
				errs = append(errs, fmt.Sprintf("attribute %q is required", def.Name))
			}
			continue
		}

		switch def.DataType {
		case "string":
			if _, ok := value.(string); !ok {
				errs = append(errs, fmt.Sprintf("attribute %q must be a string", def.Name))
			}
		case "number":
			switch v := value.(type) {
			case float64, int, int64:
			case string:
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					errs = append(errs, fmt.Sprintf("attribute %q must be a number", def.Name))
				}
			default:
				errs = append(errs, fmt.Sprintf("attribute %q must be a number", def.Name))
			}
		case "boolean":
			if _, ok := value.(bool); !ok {
				errs = append(errs, fmt.Sprintf("attribute %q must be a boolean", def.Name))
			}
		case "enum":
			allowed, _ := def.Options["values"].([]interface{})
			matched := false
			for _, option := range allowed {
				if option == value {
					matched = true
					break
				}
			}
			if !matched {
				errs = append(errs, fmt.Sprintf("attribute %q has a value outside its allowed options", def.Name))
			}
		}
	}

	for name := range values {
		if _, ok := known[name]; !ok {
			errs = append(errs, fmt.Sprintf("attribute %q is not defined for this category", name))
		}
	}

	return errs
}
