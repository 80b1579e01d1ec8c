package report

import (
	"crypto/rand"
	"fmt"
	"os"
	"time"
)

// DefaultInstanceID identifies this process as hostname-pid-random-unixtime.
func DefaultInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}

	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s-%d-%x-%d", hostname, os.Getpid(), randomBytes, time.Now().Unix())
}
