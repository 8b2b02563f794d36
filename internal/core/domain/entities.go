package domain

import "time"

// Conventional CRUD resources owned entirely by the backend. The client only
// caches list/detail responses keyed by id with TTL-based staleness.

type Employee struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CameraHealth string

const (
	CameraOnline   CameraHealth = "online"
	CameraOffline  CameraHealth = "offline"
	CameraDegraded CameraHealth = "degraded"
)

type Camera struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Health   CameraHealth `json:"health"`
	LastSeen time.Time    `json:"last_seen"`
}

// PrivacySettings holds the store's LGPD configuration.
type PrivacySettings struct {
	BlurFaces        bool `json:"blur_faces"`
	RetentionDays    int  `json:"retention_days"`
	ConsentRequired  bool `json:"consent_required"`
	AnonymizeExports bool `json:"anonymize_exports"`
}
