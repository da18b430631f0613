package logger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var requestSeq atomic.Uint64

// GenerateRequestID returns a process-unique request ID of the form
// timestamp-sequence-random, e.g. 20260831102830-000017-a3f2b1. The random
// suffix keeps IDs distinct across restarts within the same second.
func GenerateRequestID() string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%06d-%s",
		time.Now().Format("20060102150405"),
		requestSeq.Add(1),
		hex.EncodeToString(suffix))
}
