package storage

import (
	"context"
	"errors"
	"time"
)

// Resource identifies a domain entity kind handled by the store.
type Resource string

const (
	ResourceApartment Resource = "apartment"
	ResourceDocument  Resource = "document"
	ResourceActivity  Resource = "activity"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// User is a landlord or tenant profile.
type User struct {
	ID          string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Apartment is a rental unit owned by a landlord and occupied by tenants.
type Apartment struct {
	ID         string    `json:"apartmentId"`
	LandlordID string    `json:"landlordId"`
	Address    string    `json:"address"`
	Rooms      int       `json:"rooms"`
	Rent       float64   `json:"rent"`
	TenantIDs  []string  `json:"tenantIds"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Document is a rental-agreement document attached to an apartment.
type Document struct {
	ID          string    `json:"documentId"`
	ApartmentID string    `json:"apartmentId"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Activity is a payment or maintenance record on an apartment.
type Activity struct {
	ID          string    `json:"activityId"`
	ApartmentID string    `json:"apartmentId"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ReadParams scopes a read operation. With an ID set, a single entity is
// read; otherwise the read lists entities visible to the calling user
// (optionally narrowed to one apartment).
type ReadParams struct {
	ID          string
	ApartmentID string
}

// Result is the outcome of a successful store operation: the payload shaped
// for direct client consumption, and the set of user ids that must be
// notified of the change. Target-set membership is a business-layer concern
// computed here; the notification router only consumes the list.
type Result struct {
	Payload interface{}
	Targets []string
}

// Store is the data-access collaborator the realtime core executes commands
// against. Raw payload bytes come straight off the wire; each
// implementation decodes them into its typed entities.
type Store interface {
	// EnsureUser idempotently upserts a user profile on connect.
	EnsureUser(ctx context.Context, id, displayName string) error

	Create(ctx context.Context, res Resource, userID string, data []byte) (*Result, error)
	Read(ctx context.Context, res Resource, userID string, params ReadParams) (*Result, error)
	Update(ctx context.Context, res Resource, userID string, data []byte) (*Result, error)
	Delete(ctx context.Context, res Resource, userID, id string) (*Result, error)
}
