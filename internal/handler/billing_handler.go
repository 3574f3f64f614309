package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/certready/certready-backend/internal/middleware"
	"github.com/certready/certready-backend/internal/model"
	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
	"github.com/certready/certready-backend/internal/validator"
)

// BillingHandler handles checkout, transaction and entitlement endpoints.
type BillingHandler struct {
	billingService     *service.BillingService
	entitlementService *service.EntitlementService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingService *service.BillingService, entitlementService *service.EntitlementService) *BillingHandler {
	return &BillingHandler{
		billingService:     billingService,
		entitlementService: entitlementService,
	}
}

// ListProducts godoc
// GET /api/v1/products
func (h *BillingHandler) ListProducts(c *gin.Context) {
	products, err := h.billingService.ListProducts(c.Request.Context())
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"products": products})
}

// UpsertProduct godoc
// POST /api/v1/admin/products
// Records a new effective version of a SKU.
func (h *BillingHandler) UpsertProduct(c *gin.Context) {
	var req model.UpsertProductRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	product, err := h.billingService.UpsertProduct(c.Request.Context(), &req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"product": product})
}

// CreateCheckout godoc
// POST /api/v1/billing/checkout
// Opens a processor checkout and returns the redirect target.
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateCheckoutRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	intent, err := h.billingService.CreateCheckout(c.Request.Context(), user, req.ProductCode)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"checkout": intent})
}

// ListMyTransactions godoc
// GET /api/v1/billing/transactions
func (h *BillingHandler) ListMyTransactions(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	transactions, total, err := h.billingService.ListForUser(c.Request.Context(), user.ID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"transactions": transactions}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}

// MyAccessStatus godoc
// GET /api/v1/billing/access
// Returns the caller's per-category entitlement snapshot.
func (h *BillingHandler) MyAccessStatus(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	status, err := h.entitlementService.GetAccessStatus(c.Request.Context(), user.ID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"access": status})
}

// RecordManualTransaction godoc
// POST /api/v1/admin/transactions
// Records an off-platform payment and grants access immediately.
func (h *BillingHandler) RecordManualTransaction(c *gin.Context) {
	var req model.RecordManualTransactionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	tx, err := h.billingService.RecordManual(c.Request.Context(), &req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"transaction": tx})
}

// UpdateManualTransaction godoc
// PATCH /api/v1/admin/transactions/:id
func (h *BillingHandler) UpdateManualTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateManualTransactionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	tx, err := h.billingService.UpdateManual(c.Request.Context(), id, &req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"transaction": tx})
}

// DeleteManualTransaction godoc
// DELETE /api/v1/admin/transactions/:id
// Reports whether the deletion actually revoked access.
func (h *BillingHandler) DeleteManualTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	revoked, err := h.billingService.DeleteManual(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"access_revoked": revoked})
}

// UserTransactions godoc
// GET /api/v1/admin/users/:id/transactions
func (h *BillingHandler) UserTransactions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	transactions, total, err := h.billingService.ListForUser(c.Request.Context(), userID, page, perPage)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"transactions": transactions}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	})
}
