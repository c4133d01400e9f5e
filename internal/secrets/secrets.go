package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Store is the narrow secret-retrieval capability the collector needs.
// How secrets actually get there (vault, env injection, files) is an
// operational concern outside this service.
type Store interface {
	GetSecret(name string) (string, error)
}

// EnvStore resolves secrets from environment variables, preferring an
// environment-prefixed name (e.g. PROD_NETATMO_CLIENT_ID) over the plain one.
type EnvStore struct {
	Environment string
}

func (s EnvStore) GetSecret(name string) (string, error) {
	if s.Environment != "" {
		prefixed := strings.ToUpper(s.Environment) + "_" + name
		if v := os.Getenv(prefixed); v != "" {
			return v, nil
		}
	}
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("secret %s is not set", name)
}
