// internal/handlers/rules_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vendora/marketplace-backend/internal/models"
	"github.com/vendora/marketplace-backend/internal/services"
)

type RuleHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	admin  *models.User
}

func (s *RuleHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Category{},
		&models.Rule{},
		&models.Order{},
		&models.OrderTransaction{},
		&models.AuditLog{},
	))
	s.db = db

	s.admin = &models.User{
		Username: "admin-" + uuid.New().String()[:8],
		Email:    uuid.New().String()[:8] + "@example.com",
		UserType: models.UserTypeAdmin,
		Status:   models.UserStatusActive,
	}
	s.Require().NoError(s.admin.SetPassword("TestPass123!"))
	s.Require().NoError(db.Create(s.admin).Error)

	handler := NewRuleHandler(services.NewRuleService(db))

	s.router = gin.New()
	authed := s.router.Group("/v1/admin", func(c *gin.Context) {
		c.Set("user_id", s.admin.ID.String())
		c.Set("user_type", string(models.UserTypeAdmin))
		c.Next()
	})
	rules := authed.Group("/rules")
	{
		rules.POST("", handler.CreateRule)
		rules.GET("", handler.ListRules)
		rules.GET("/active", handler.ActiveRules)
		rules.GET("/future", handler.FutureRules)
		rules.GET("/:id", handler.GetRule)
		rules.PUT("/:id", handler.UpdateRule)
		rules.DELETE("/:id", handler.DeleteRule)
		rules.POST("/:id/deactivate", handler.DeactivateRule)
	}
}

func (s *RuleHandlerTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RuleHandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func commissionBody(name string, start, end string) map[string]interface{} {
	body := map[string]interface{}{
		"rule_type":            "commission",
		"name":                 name,
		"scope":                map[string]interface{}{"type": "global"},
		"rate":                 "12.5",
		"effective_start_date": start,
	}
	if end != "" {
		body["effective_end_date"] = end
	}
	return body
}

func (s *RuleHandlerTestSuite) TestCreateRule() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("Standard commission", "2026-01-01T00:00:00Z", ""))

	s.Equal(http.StatusCreated, w.Code)

	body := s.decode(w)
	data := body["data"].(map[string]interface{})
	rule := data["rule"].(map[string]interface{})
	s.Equal("Standard commission", rule["name"])
	s.Equal("commission", rule["rule_type"])

	var count int64
	s.db.Model(&models.Rule{}).Count(&count)
	s.Equal(int64(1), count)
}

func (s *RuleHandlerTestSuite) TestConflictReturns422() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("First", "2026-01-01T00:00:00Z", ""))
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("Second", "2026-06-01T00:00:00Z", ""))
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	body := s.decode(w)
	errObj := body["error"].(map[string]interface{})
	s.Equal("BUSINESS_RULE_VIOLATION", errObj["code"])

	details := errObj["details"].([]interface{})
	s.Require().Len(details, 1)
	s.Contains(details[0].(string), "conflicts with rule")
}

func (s *RuleHandlerTestSuite) TestMalformedBodyReturns400() {
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/rules",
		bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RuleHandlerTestSuite) TestGetRuleStatusAndNotFound() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("Live rule", "2024-01-01T00:00:00Z", ""))
	s.Require().Equal(http.StatusCreated, w.Code)

	created := s.decode(w)["data"].(map[string]interface{})["rule"].(map[string]interface{})
	id := created["id"].(string)

	w = s.request(http.MethodGet, "/v1/admin/rules/"+id, nil)
	s.Equal(http.StatusOK, w.Code)
	data := s.decode(w)["data"].(map[string]interface{})
	s.Equal("active", data["status"])

	w = s.request(http.MethodGet, "/v1/admin/rules/"+uuid.New().String(), nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodGet, "/v1/admin/rules/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RuleHandlerTestSuite) TestListRulesFiltersByType() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("Commission", "2026-01-01T00:00:00Z", ""))
	s.Require().Equal(http.StatusCreated, w.Code)

	vat := map[string]interface{}{
		"rule_type":            "vat",
		"name":                 "German VAT",
		"scope":                map[string]interface{}{"type": "geo", "country_code": "DE"},
		"rate":                 "19",
		"effective_start_date": "2026-01-01T00:00:00Z",
	}
	w = s.request(http.MethodPost, "/v1/admin/rules", vat)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(http.MethodGet, "/v1/admin/rules?rule_type=vat", nil)
	s.Equal(http.StatusOK, w.Code)

	data := s.decode(w)["data"].([]interface{})
	s.Require().Len(data, 1)
	s.Equal("German VAT", data[0].(map[string]interface{})["name"])
}

func (s *RuleHandlerTestSuite) TestActiveRulesRejectsBadAsOf() {
	w := s.request(http.MethodGet, "/v1/admin/rules/active?as_of=yesterday", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodGet, "/v1/admin/rules/active?rule_type=discount", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RuleHandlerTestSuite) TestActiveRulesAsOf() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("March only", "2026-03-01T00:00:00Z", "2026-03-31T00:00:00Z"))
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(http.MethodGet, "/v1/admin/rules/active?rule_type=commission&as_of=2026-03-15T00:00:00Z", nil)
	s.Equal(http.StatusOK, w.Code)
	data := s.decode(w)["data"].(map[string]interface{})
	s.Len(data["rules"].([]interface{}), 1)

	w = s.request(http.MethodGet, "/v1/admin/rules/active?rule_type=commission&as_of=2026-05-01T00:00:00Z", nil)
	s.Equal(http.StatusOK, w.Code)
	data = s.decode(w)["data"].(map[string]interface{})
	s.Len(data["rules"].([]interface{}), 0)
}

func (s *RuleHandlerTestSuite) TestDeactivateThenDeleteRule() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("Short lived", "2026-01-01T00:00:00Z", ""))
	s.Require().Equal(http.StatusCreated, w.Code)
	id := s.decode(w)["data"].(map[string]interface{})["rule"].(map[string]interface{})["id"].(string)

	w = s.request(http.MethodPost, "/v1/admin/rules/"+id+"/deactivate", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, "/v1/admin/rules/"+id, nil)
	s.Equal(http.StatusOK, w.Code)

	var count int64
	s.db.Unscoped().Model(&models.Rule{}).Count(&count)
	s.Equal(int64(0), count)
}

func (s *RuleHandlerTestSuite) TestUpdateRule() {
	w := s.request(http.MethodPost, "/v1/admin/rules",
		commissionBody("Before update", "2026-01-01T00:00:00Z", ""))
	s.Require().Equal(http.StatusCreated, w.Code)
	id := s.decode(w)["data"].(map[string]interface{})["rule"].(map[string]interface{})["id"].(string)

	update := commissionBody("After update", "2026-01-01T00:00:00Z", "")
	update["is_active"] = true
	w = s.request(http.MethodPut, "/v1/admin/rules/"+id, update)
	s.Equal(http.StatusOK, w.Code)

	var rule models.Rule
	s.Require().NoError(s.db.First(&rule, "id = ?", id).Error)
	s.Equal("After update", rule.Name)
	s.False(rule.UpdatedAt.Before(time.Now().Add(-time.Minute)))
}

func TestRuleHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(RuleHandlerTestSuite))
}
