package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Maksimka7878/gorod/internal/models"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestQueueItem creates a queue item with default values
func (h *TestHelper) CreateTestQueueItem(id uint, itemType string, payload []byte) *models.QueueItem {
	if id == 0 {
		id = 1
	}
	if itemType == "" {
		itemType = models.QueueTypeNotification
	}
	if payload == nil {
		req := models.NotificationRequest{Title: "Test notification"}
		encoded, err := req.EncodePayload()
		if err != nil {
			h.t.Fatalf("encode default payload: %v", err)
		}
		payload = encoded
	}

	return &models.QueueItem{
		ID:        id,
		Type:      itemType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// CreateTestNotification creates a notification request with defaults
func (h *TestHelper) CreateTestNotification(title string) models.NotificationRequest {
	if title == "" {
		title = "Test notification"
	}
	return models.NotificationRequest{
		Title: title,
		Body:  "Test body",
		Icon:  models.DefaultNotificationIcon,
		URL:   models.DefaultNotificationURL,
	}
}

// MakePushToken signs a push-scope bearer token for handler tests
func (h *TestHelper) MakePushToken(secret string) string {
	claims := jwt.MapClaims{
		"scope": "push",
		"sub":   "test-sender",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		h.t.Fatalf("sign push token: %v", err)
	}
	return token
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("PUSH_JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("QUEUE_DB_PATH", "")
	os.Setenv("WORKER_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("PUSH_JWT_SECRET")
	os.Unsetenv("QUEUE_DB_PATH")
	os.Unsetenv("WORKER_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(value interface{}, testName string) {
	if value == nil {
		h.t.Errorf("%s: expected non-nil value", testName)
	}
}
