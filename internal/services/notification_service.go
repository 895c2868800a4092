// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendora/marketplace-backend/internal/config"
	"github.com/vendora/marketplace-backend/internal/models"
)

// NotificationService raises in-app admin notifications and sends
// transactional email. Without SMTP configuration it logs instead of sending.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

func (s *NotificationService) SendWelcomeEmail(user *models.User, verificationToken string) error {
	tmpl := s.getEmailTemplate("welcome")

	data := map[string]interface{}{
		"Username":        user.Username,
		"VerificationURL": fmt.Sprintf("%s/verify-email?token=%s", s.config.Frontend.BaseURL, verificationToken),
		"PlatformName":    "Vendora Marketplace",
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, tmpl.Subject, body)
}

func (s *NotificationService) SendStoreApprovedEmail(owner *models.User, store *models.Store) error {
	tmpl := s.getEmailTemplate("store_approved")

	data := map[string]interface{}{
		"Username":  owner.Username,
		"StoreName": store.Name,
		"StoreURL":  fmt.Sprintf("%s/stores/%s", s.config.Frontend.BaseURL, store.Slug),
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(owner.Email, tmpl.Subject, body)
}

func (s *NotificationService) SendSettlementFinalizedEmail(owner *models.User, settlement *models.Settlement) error {
	tmpl := s.getEmailTemplate("settlement_finalized")

	data := map[string]interface{}{
		"Username":    owner.Username,
		"PeriodStart": settlement.PeriodStartDate.Format("2006-01-02"),
		"PeriodEnd":   settlement.PeriodEndDate.Format("2006-01-02"),
		"NetAmount":   settlement.NetAmount.String(),
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(owner.Email, tmpl.Subject, body)
}

func (s *NotificationService) SendReconsentEmail(user *models.User, doc *models.LegalDocument) error {
	tmpl := s.getEmailTemplate("reconsent")

	data := map[string]interface{}{
		"Username":     user.Username,
		"DocumentName": doc.Title,
		"ConsentURL":   fmt.Sprintf("%s/legal/%s", s.config.Frontend.BaseURL, doc.DocumentType),
	}

	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, tmpl.Subject, body)
}

// NotifyAdmins raises an in-app notification on the admin dashboard.
func (s *NotificationService) NotifyAdmins(ctx context.Context, notifType, title, message, priority, resourceType string, resourceID *uuid.UUID) error {
	notification := &models.AdminNotification{
		Type:                notifType,
		Title:               title,
		Message:             message,
		Priority:            priority,
		RelatedResourceType: resourceType,
		RelatedResourceID:   resourceID,
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (s *NotificationService) ListAdminNotifications(ctx context.Context, unreadOnly bool, limit int) ([]models.AdminNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.AdminNotification{})
	if unreadOnly {
		query = query.Where("status = ?", "unread")
	}

	var notifications []models.AdminNotification
	err := query.Order("created_at desc").Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, nil
}

func (s *NotificationService) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.AdminNotification{}).
		Where("id = ? AND status = ?", id, "unread").
		Updates(map[string]interface{}{
			"status":  "read",
			"read_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("notification not found")
	}
	return nil
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		fmt.Printf("Email would be sent to %s: %s\n", to, subject)
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"welcome": {
			Subject: "Welcome to Vendora",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Welcome {{.Username}}!</h2>
	<p>Thank you for joining Vendora. Please verify your email address by clicking the link below:</p>
	<a href="{{.VerificationURL}}">Verify Email</a>
	<p>Best regards,<br>{{.PlatformName}} Team</p>
</body>
</html>`,
		},
		"store_approved": {
			Subject: "Your store is live",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Congratulations {{.Username}}!</h2>
	<p>Your store "{{.StoreName}}" has been approved and is now live.</p>
	<a href="{{.StoreURL}}">Visit your store</a>
	<p>Best regards,<br>Vendora Team</p>
</body>
</html>`,
		},
		"settlement_finalized": {
			Subject: "Your settlement statement is ready",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>Your settlement for {{.PeriodStart}} to {{.PeriodEnd}} has been finalized.</p>
	<p>Net payout: {{.NetAmount}}</p>
	<p>Best regards,<br>Vendora Team</p>
</body>
</html>`,
		},
		"reconsent": {
			Subject: "Updated terms need your attention",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hello {{.Username}},</h2>
	<p>We have published a new version of "{{.DocumentName}}". Please review and accept it on your next visit.</p>
	<a href="{{.ConsentURL}}">Review the document</a>
	<p>Best regards,<br>Vendora Team</p>
</body>
</html>`,
		},
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}

	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
