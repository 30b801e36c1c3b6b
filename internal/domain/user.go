package domain

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	PushToken   string `json:"-"` // FCM device registration token
	CreatedOn   string `json:"created_on"`
}

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleSystem Role = "system"
)

// Actor identifies who is performing a booking action.
type Actor struct {
	UserID string
	Role   Role
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{UserID: "system", Role: RoleSystem}
