package account_test

import (
	"time"

	"github.com/BradenHooton/courier/internal/account"
	"github.com/BradenHooton/courier/internal/models"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestAccount() *models.Account {
	a := models.NewAccount("ada@example.com", "Ada", "Lovelace", "$2a$10$hash", t0)
	a.ID = "acc-1"
	return a
}

func newTestMachine() *account.Machine {
	return account.NewMachine(account.DefaultPolicy())
}

func strPtr(s string) *string {
	return &s
}

func actionsOf(a *models.Account) []models.AuditAction {
	out := make([]models.AuditAction, 0, len(a.AuditLog))
	for _, e := range a.AuditLog {
		out = append(out, e.Action)
	}
	return out
}
