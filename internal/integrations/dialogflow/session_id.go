package dialogflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	now        = time.Now
	randomPart = func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
)

// NewSessionID returns "{userID}_{unixMillis}" for a known user and
// "session_{unixMillis}_{random}" otherwise.
func NewSessionID(userID string) string {
	ms := now().UnixMilli()
	if userID = strings.TrimSpace(userID); userID != "" {
		return fmt.Sprintf("%s_%d", userID, ms)
	}
	return fmt.Sprintf("session_%d_%s", ms, randomPart())
}
