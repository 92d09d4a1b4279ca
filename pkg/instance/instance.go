package instance

import (
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	once sync.Once
	id   string
)

// GetID returns the identifier of this process. FEASTFLOW_INSTANCE_ID wins;
// otherwise the hostname plus a random suffix is generated once and reused.
func GetID() string {
	once.Do(func() {
		id = resolve()
	})
	return id
}

func resolve() string {
	if v := strings.TrimSpace(os.Getenv("FEASTFLOW_INSTANCE_ID")); v != "" {
		return v
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "api"
	}
	return host + "-" + uuid.NewString()[:8]
}
