package models

// LocationType distinguishes vehicle branches from repair workshops.
type LocationType string

const (
	LocationTypeBranch   LocationType = "BRANCH"
	LocationTypeWorkshop LocationType = "WORKSHOP"
)

// Location is a physical site: a branch where vehicles are based or a workshop
// where repairs are carried out.
type Location struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	PhoneNumber  string       `db:"phone_number" json:"phone_number"`
	Email        string       `db:"email" json:"email"`
	Address      string       `db:"address" json:"address"`
	LocationType LocationType `db:"location_type" json:"location_type"`
}

// LocationRequest is the payload for creating or updating a location. The
// location type cannot be changed after creation.
type LocationRequest struct {
	Name         string       `json:"name" validate:"required,max=120"`
	PhoneNumber  string       `json:"phone_number" validate:"required,max=32"`
	Email        string       `json:"email" validate:"required,email"`
	Address      string       `json:"address" validate:"required"`
	LocationType LocationType `json:"location_type" validate:"required,oneof=BRANCH WORKSHOP"`
}

// ManufacturerRequest is the payload for creating or updating a manufacturer.
type ManufacturerRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// LocationFilter captures filtering criteria for listing locations.
type LocationFilter struct {
	Name         string
	LocationType LocationType
	Page         int
	PageSize     int
}

// Manufacturer is a vehicle make reference record.
type Manufacturer struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
