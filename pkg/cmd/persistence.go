package cmd

import (
	"fmt"
	"strings"

	"github.com/dmelo/skein/pkg/persistence"
	"github.com/dmelo/skein/pkg/persistence/file"
	"github.com/dmelo/skein/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "redis", "rediss"}

func NewPersistence(databaseURL string) persistence.Persistence {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "redis", "rediss":
		store, err := redis.NewRedisPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis persistence: %w", err))
		}

		return store
	default:
		return file.NewFilePersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
