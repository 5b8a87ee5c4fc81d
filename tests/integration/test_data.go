package integration

import (
	"fmt"

	"github.com/google/uuid"
)

// TestPassword satisfies the password policy
const TestPassword = "TestPassword123!"

// TestCredentials generates unique account credentials
func TestCredentials(suffix string) (email, password string) {
	email = fmt.Sprintf("test-%s-%s@example.com", uuid.New().String()[:8], suffix)
	return email, TestPassword
}
