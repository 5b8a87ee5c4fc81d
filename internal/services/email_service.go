package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/courier/internal/models"
	pkglogger "github.com/BradenHooton/courier/pkg/logger"
)

// LockoutNotifier tells an account owner that their account was locked
type LockoutNotifier interface {
	NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error
}

// SESSender is the subset of the SES client used for delivery
type SESSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

const lockoutSubject = "Your account has been temporarily locked"

// lockoutText is rendered with the same placeholder rules as stored templates
var lockoutText = models.Template{
	Name:        "account_locked",
	MessageType: models.MessageTypeText,
	Content: aws.String("Hi {{name}},\n\n" +
		"We locked your account after several failed sign-in attempts.\n" +
		"You can sign in again after {{unlock_at}}.\n\n" +
		"If these attempts were not you, change your password as soon as the lock lifts.\n"),
	Variables: []models.TemplateVariable{
		{Name: "name", Required: true, Type: "string"},
		{Name: "unlock_at", Required: true, Type: "string"},
	},
}

var lockoutHTML = template.Must(template.New("account_locked").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Your account is temporarily locked</h2>
  <p>Hi {{.Name}},</p>
  <p>We locked your account after several failed sign-in attempts.</p>
  <p style="border-left: 4px solid #ffc107; padding-left: 8px;">You can sign in again after <strong>{{.UnlockAt}}</strong>.</p>
  <p>If these attempts were not you, change your password as soon as the lock lifts.</p>
  <p style="color: #666; font-size: 12px;">This is an automated message.</p>
</body>
</html>
`))

// SESNotifier sends lockout notices through AWS SES
type SESNotifier struct {
	client      SESSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS configuration for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func NewSESNotifierWithClient(client SESSender, fromAddress string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{client: client, fromAddress: fromAddress, logger: logger}
}

// NotifyAccountLocked emails the owner the time the lock lifts
func (n *SESNotifier) NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error {
	input, err := n.lockoutEmail(account, until)
	if err != nil {
		return err
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		n.logger.ErrorContext(ctx, "lockout email not sent",
			slog.String("email", pkglogger.SanitizedEmail(account.Email)),
			slog.Any("error", err))
		return fmt.Errorf("send lockout email: %w", err)
	}

	n.logger.InfoContext(ctx, "lockout email sent",
		slog.String("account_id", account.ID),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

func (n *SESNotifier) lockoutEmail(account *models.Account, until time.Time) (*ses.SendEmailInput, error) {
	name := account.FirstName
	if name == "" {
		name = "there"
	}
	unlockAt := until.UTC().Format("Jan 2, 2006 at 15:04 UTC")

	var html bytes.Buffer
	if err := lockoutHTML.Execute(&html, struct{ Name, UnlockAt string }{name, unlockAt}); err != nil {
		return nil, fmt.Errorf("render lockout email: %w", err)
	}
	text := lockoutText.Render(map[string]string{"name": name, "unlock_at": unlockAt})

	return &ses.SendEmailInput{
		Source:      aws.String(n.fromAddress),
		Destination: &types.Destination{ToAddresses: []string{account.Email}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(lockoutSubject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html.String())},
				Text: &types.Content{Data: aws.String(text)},
			},
		},
	}, nil
}
