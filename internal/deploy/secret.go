package deploy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"comfyctl/pkg/logging"
)

var randRead = rand.Read

// NewSecret returns a fresh 32 character hex session secret. When the system
// randomness source is unavailable it derives one from time, pid, and
// hostname instead and logs a warning.
func NewSecret() string {
	buf := make([]byte, 16)
	if _, err := randRead(buf); err != nil {
		logging.Warn(deploySubsystem, "Crypto random unavailable (%v), deriving session secret from host state", err)
		host, _ := os.Hostname()
		seed := fmt.Sprintf("%d|%d|%s", time.Now().UnixNano(), os.Getpid(), host)
		sum := sha256.Sum256([]byte(seed))
		return hex.EncodeToString(sum[:16])
	}
	return hex.EncodeToString(buf)
}
