package redis

import "fmt"

const (
	// KeyPrefixClient is the prefix for client roster records
	KeyPrefixClient = "sitewatch:client:"
	// KeyPrefixReport is the prefix for cached telemetry reports
	KeyPrefixReport = "sitewatch:report:"
	// KeyAllClients is the key for the set of all client slugs
	KeyAllClients = "sitewatch:clients:all"
)

// ClientKey returns the Redis key for a client by slug
func ClientKey(slug string) string {
	return KeyPrefixClient + slug
}

// ReportKey returns the Redis key for a cached report of one site
func ReportKey(siteID string) string {
	return KeyPrefixReport + siteID
}

// AllClientsKey returns the key for the set of all client slugs
func AllClientsKey() string {
	return KeyAllClients
}

// ExtractClientSlug extracts the client slug from a Redis key
func ExtractClientSlug(key string) (string, error) {
	if len(key) <= len(KeyPrefixClient) || key[:len(KeyPrefixClient)] != KeyPrefixClient {
		return "", fmt.Errorf("invalid client key: %s", key)
	}
	return key[len(KeyPrefixClient):], nil
}
