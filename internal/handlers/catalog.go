// internal/handlers/catalog.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vendora/marketplace-backend/internal/i18n"
	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
	"github.com/vendora/marketplace-backend/internal/utils"
)

type CatalogHandler struct {
	catalogService    *services.CatalogService
	storeService      *services.StoreService
	storageService    *services.StorageService
	moderationService *services.ModerationService
}

func NewCatalogHandler(catalogService *services.CatalogService, storeService *services.StoreService, storageService *services.StorageService, moderationService *services.ModerationService) *CatalogHandler {
	return &CatalogHandler{
		catalogService:    catalogService,
		storeService:      storeService,
		storageService:    storageService,
		moderationService: moderationService,
	}
}

// GET /categories
func (h *CatalogHandler) CategoryTree(c *gin.Context) {
	tree, err := h.catalogService.CategoryTree(c.Request.Context())
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{"categories": tree})
}

// POST /admin/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCategoryCreated),
		"category": category,
	})
}

// DELETE /admin/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	categoryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteCategory(c.Request.Context(), categoryID, adminID); err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

// POST /admin/categories/:id/attributes
func (h *CatalogHandler) AddAttribute(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	categoryID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.CreateAttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	attr, err := h.catalogService.AddAttribute(c.Request.Context(), categoryID, adminID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.CreatedResponse(c, attr)
}

// POST /seller/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	store, ok := h.requireOwnStore(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), store.ID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.CreatedResponse(c, product)
}

// PUT /seller/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	store, ok := h.requireOwnStore(c)
	if !ok {
		return
	}

	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), productID, store.ID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /seller/products/:id/publish
func (h *CatalogHandler) PublishProduct(c *gin.Context) {
	store, ok := h.requireOwnStore(c)
	if !ok {
		return
	}

	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.PublishProduct(c.Request.Context(), productID, store.ID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /seller/products/:id/unpublish
func (h *CatalogHandler) UnpublishProduct(c *gin.Context) {
	store, ok := h.requireOwnStore(c)
	if !ok {
		return
	}

	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.UnpublishProduct(c.Request.Context(), productID, store.ID); err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": "product unpublished"})
}

// POST /seller/products/:id/photos
func (h *CatalogHandler) UploadPhoto(c *gin.Context) {
	store, ok := h.requireOwnStore(c)
	if !ok {
		return
	}

	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		utils.BadRequestResponse(c, "photo file is required", nil)
		return
	}
	defer file.Close()

	if err := h.storageService.ValidateImage(file); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	options := h.storageService.GetDefaultUploadOptions("product_photos")
	upload, err := h.storageService.UploadFile(file, header, options)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	photo, err := h.moderationService.AddProductPhoto(c.Request.Context(), productID, store.ID, upload)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.CreatedResponse(c, photo)
}

// GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products
func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	params := services.ProductSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		PublishedOnly:    true,
	}

	if raw := c.Query("store_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, "invalid store_id", nil)
			return
		}
		params.StoreID = &id
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, "invalid category_id", nil)
			return
		}
		params.CategoryID = &id
	}

	products, total, err := h.catalogService.SearchProducts(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params.PaginationParams))
}

// GET /products/:id/reviews
func (h *CatalogHandler) ProductReviews(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	reviews, total, err := h.moderationService.ApprovedProductReviews(c.Request.Context(), productID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(reviews, total, params))
}

// POST /products/:id/reviews
func (h *CatalogHandler) SubmitReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req services.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	req.ProductID = productID

	review, err := h.moderationService.SubmitReview(c.Request.Context(), userID, &req)
	if err != nil {
		handleServiceError(c, err, i18n.KeyCategoryNotFound)
		return
	}

	utils.CreatedResponse(c, review)
}

func (h *CatalogHandler) requireOwnStore(c *gin.Context) (*models.Store, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, false
	}

	store, err := h.storeService.GetStoreByOwner(c.Request.Context(), userID)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyStoreNotFound)
		return nil, false
	}

	return store, true
}
