// Package environment names the deployment environments the application
// recognizes and normalizes the short aliases operators tend to type.
package environment

import "strings"

// Environment represents application environment.
type Environment string

const (
	// Development for local work: text logs, insecure cookies allowed.
	Development Environment = "development"
	// Staging mirrors production settings against non-production data.
	Staging Environment = "staging"
	// Production for live traffic.
	Production Environment = "production"
)

// Parse maps a raw APP_ENV value to a known environment.
// Unknown and empty values fall back to Development.
func Parse(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(Production), "prod":
		return Production
	case string(Staging), "stage":
		return Staging
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}

// String implements fmt.Stringer.
func (e Environment) String() string {
	return string(e)
}
