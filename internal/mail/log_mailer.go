package mail

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogMailer stands in for a real provider in dev and tests. The code is
// logged instead of delivered; the HTTP response never carries it.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) SendActivationCode(ctx context.Context, in SendActivationCodeInput) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	log.Printf("mail.activation_code email=%s name=%s code=%s",
		in.Email, in.Name, in.Code,
	)
	return nil
}
