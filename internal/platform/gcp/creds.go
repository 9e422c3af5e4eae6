package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv accepts inline JSON credentials or a credentials file
// path. Empty means application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}
