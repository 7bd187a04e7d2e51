// Package leads implements lead records and their persistence: capture,
// qualification status tracking, assignment to sales reps, and follow-up
// scheduling. This is request/response plumbing against the document
// store; the interesting state machines live in the identity package.
package leads

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ServiceType enumerates the offered services.
type ServiceType string

const (
	ServiceBlinds   ServiceType = "blinds"
	ServicePainting ServiceType = "painting"
	ServiceBoth     ServiceType = "both"
)

// Source enumerates where a lead came from.
type Source string

const (
	SourceGoogleAds     Source = "google_ads"
	SourceFacebookAds   Source = "facebook_ads"
	SourceOrganicSearch Source = "organic_search"
	SourceReferral      Source = "referral"
	SourceDirect        Source = "direct"
)

// Status enumerates the lead pipeline stages.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

// IsValid reports whether the status is one of the pipeline stages.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost:
		return true
	default:
		return false
	}
}

// Location is the lead's service address with its geocoded point.
type Location struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zip_code"`
}

var _ driver.Valuer = Location{}

// Value serializes the location as JSON for its column.
func (l Location) Value() (driver.Value, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan restores the location from its JSON column value.
func (l *Location) Scan(src any) error {
	if src == nil {
		*l = Location{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported location column type %T", src)
	}

	return json.Unmarshal(data, l)
}

// Lead is one inbound prospect.
type Lead struct {
	bun.BaseModel `bun:"table:leads,alias:lead"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName string    `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName  string    `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email     string    `bun:"email,notnull" json:"email,omitempty"`
	Phone     string    `bun:"phone,notnull" json:"phone,omitempty"`

	Location Location `bun:"location,type:jsonb" json:"location"`

	ServiceType    ServiceType `bun:"service_type,notnull" json:"service_type,omitempty"`
	ServiceDetails string      `bun:"service_details" json:"service_details,omitempty"`
	Source         Source      `bun:"source,notnull" json:"source,omitempty"`
	Status         Status      `bun:"status,notnull" json:"status,omitempty"`
	Notes          string      `bun:"notes" json:"notes,omitempty"`

	AssignedTo *uuid.UUID `bun:"assigned_to,nullzero,type:uuid" json:"assigned_to,omitempty"`

	LastContacted *time.Time `bun:"last_contacted,nullzero" json:"last_contacted,omitempty"`
	NextFollowUp  *time.Time `bun:"next_follow_up,nullzero" json:"next_follow_up,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Validate enforces field presence and enum membership on capture.
func (l Lead) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.FirstName, validation.Required),
		validation.Field(&l.LastName, validation.Required),
		validation.Field(&l.Email, validation.Required, is.Email),
		validation.Field(&l.Phone, validation.Required),
		validation.Field(&l.ServiceType, validation.Required,
			validation.In(ServiceBlinds, ServicePainting, ServiceBoth)),
		validation.Field(&l.Source, validation.Required,
			validation.In(SourceGoogleAds, SourceFacebookAds, SourceOrganicSearch, SourceReferral, SourceDirect)),
		validation.Field(&l.Status,
			validation.In(StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost)),
	)
}
