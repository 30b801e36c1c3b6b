// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps "METHOD route-template" to its required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Probes and scraping
	"GET /healthz": SecurityPublic,
	"GET /metrics": SecurityPublic,

	// Vehicle calendar - Public
	"GET /api/v1/vehicles/{vehicleId}/availability": SecurityPublic,
	"GET /api/v1/vehicles/{vehicleId}/quote":        SecurityPublic,

	// Photo transfer - the presigned URL is the credential
	"PUT /api/v1/upload/{token}":      SecurityPublic,
	"GET /api/v1/download/{filename}": SecurityPublic,

	// Bookings - Access Protected
	"POST /api/v1/bookings":                          SecurityAccess,
	"GET /api/v1/bookings/{id}":                      SecurityAccess,
	"POST /api/v1/bookings/{id}/accept":              SecurityAccess,
	"POST /api/v1/bookings/{id}/reject":              SecurityAccess,
	"POST /api/v1/bookings/{id}/cancel":              SecurityAccess,
	"POST /api/v1/bookings/{id}/payment":             SecurityAccess,
	"POST /api/v1/bookings/{id}/pickup":              SecurityAccess,
	"POST /api/v1/bookings/{id}/return":              SecurityAccess,
	"GET /api/v1/bookings/{id}/cancellation-preview": SecurityAccess,
	"POST /api/v1/bookings/{id}/photos":              SecurityAccess,
	"GET /api/v1/bookings/{id}/photos/url":           SecurityAccess,
	"GET /api/v1/rentals":                            SecurityAccess,
	"GET /api/v1/lendings":                           SecurityAccess,

	// Notifications - Access Protected
	"GET /api/v1/notifications":            SecurityAccess,
	"POST /api/v1/notifications/{id}/read": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
