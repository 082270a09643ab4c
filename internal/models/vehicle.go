package models

// VehicleType categorises fleet vehicles.
type VehicleType string

const (
	VehicleTypePassengerCar VehicleType = "PASSENGER_CAR"
	VehicleTypeTruck        VehicleType = "TRUCK"
	VehicleTypeCoach        VehicleType = "COACH"
	VehicleTypeMotorbike    VehicleType = "MOTORBIKE"
	VehicleTypeTractorUnit  VehicleType = "TRACTOR_UNIT"
	VehicleTypeOther        VehicleType = "OTHER"
)

// FuelType categorises a vehicle's power source.
type FuelType string

const (
	FuelTypePetrol       FuelType = "PETROL"
	FuelTypeDiesel       FuelType = "DIESEL"
	FuelTypeElectric     FuelType = "ELECTRIC"
	FuelTypeHydrogen     FuelType = "HYDROGEN"
	FuelTypeHybridDiesel FuelType = "HYBRID_DIESEL"
	FuelTypeHybridPetrol FuelType = "HYBRID_PETROL"
	FuelTypeOther        FuelType = "OTHER"
)

// VehicleAvailability is the fleet availability flag. A vehicle with an open
// failure report is always UNAVAILABLE.
type VehicleAvailability string

const (
	VehicleAvailable   VehicleAvailability = "AVAILABLE"
	VehicleUnavailable VehicleAvailability = "UNAVAILABLE"
)

// Vehicle represents a fleet vehicle based at a branch location.
type Vehicle struct {
	ID             string              `db:"id" json:"id"`
	VIN            string              `db:"vin" json:"vin"`
	Kilometers     int                 `db:"kilometers" json:"kilometers"`
	ManufacturerID string              `db:"manufacturer_id" json:"manufacturer_id"`
	Model          string              `db:"model" json:"model"`
	Year           int                 `db:"year" json:"year"`
	VehicleType    VehicleType         `db:"vehicle_type" json:"vehicle_type"`
	FuelType       FuelType            `db:"fuel_type" json:"fuel_type"`
	Availability   VehicleAvailability `db:"availability" json:"availability"`
	LocationID     string              `db:"location_id" json:"location_id"`
}

// VehicleDetail enriches Vehicle with reference names.
type VehicleDetail struct {
	Vehicle
	ManufacturerName string `db:"manufacturer_name" json:"manufacturer_name"`
	LocationName     string `db:"location_name" json:"location_name"`
}

// VehicleRequest is the payload for creating or updating a vehicle.
type VehicleRequest struct {
	VIN            string              `json:"vin" validate:"required,len=17,alphanum,excludesall=IOQioq"`
	Kilometers     int                 `json:"kilometers" validate:"gte=0"`
	ManufacturerID string              `json:"manufacturer_id" validate:"required,uuid4"`
	Model          string              `json:"model" validate:"required,max=80"`
	Year           int                 `json:"year" validate:"required,gte=1950"`
	VehicleType    VehicleType         `json:"vehicle_type" validate:"required,oneof=PASSENGER_CAR TRUCK COACH MOTORBIKE TRACTOR_UNIT OTHER"`
	FuelType       FuelType            `json:"fuel_type" validate:"required,oneof=PETROL DIESEL ELECTRIC HYDROGEN HYBRID_DIESEL HYBRID_PETROL OTHER"`
	Availability   VehicleAvailability `json:"availability" validate:"required,oneof=AVAILABLE UNAVAILABLE"`
	LocationID     string              `json:"location_id" validate:"required,uuid4"`
}

// VehicleFilter captures filtering criteria for listing vehicles.
type VehicleFilter struct {
	Model          string
	YearFrom       int
	YearTo         int
	VehicleType    VehicleType
	FuelType       FuelType
	Availability   VehicleAvailability
	ManufacturerID string
	LocationID     string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
