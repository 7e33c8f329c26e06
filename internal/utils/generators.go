package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GeneratePassCode creates an opaque pass code in the PASS-<ts>-<rand> form
// used by issuance tooling.
func GeneratePassCode() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("PASS-%d-%06d", timestamp, randomNum.Int64())
}

// NewID returns a UUID v4 string for record primary keys.
func NewID() string {
	return uuid.NewString()
}

// ClientIP prefers the X-Forwarded-For header over the socket address so the
// original station address survives a reverse proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
