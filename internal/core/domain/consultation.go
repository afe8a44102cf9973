package domain

import "time"

// ConsultationKind selects between on-demand and scheduled care.
type ConsultationKind string

const (
	ConsultationImmediate ConsultationKind = "immediate"
	ConsultationScheduled ConsultationKind = "scheduled"
)

// ServiceTypeClinical is the telehealth service type for immediate consultations.
const ServiceTypeClinical = "clinical"

// ConsultationRequest is the input of RequestConsultation.
type ConsultationRequest struct {
	UserID           string           `json:"user_id"`
	CPF              string           `json:"cpf"`
	BeneficiaryUUID  string           `json:"beneficiary_uuid,omitempty"`
	Kind             ConsultationKind `json:"kind"`
	SpecialtyUUID    string           `json:"specialty_uuid,omitempty"`
	AvailabilityUUID string           `json:"availability_uuid,omitempty"`
	DateFrom         string           `json:"date_from,omitempty"`
	DateTo           string           `json:"date_to,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// Consultation is an immediate consultation issued by the telehealth provider.
type Consultation struct {
	UUID string `json:"uuid"`
	URL  string `json:"url"`
}

// AvailabilitySlot is a bookable time for a specialty.
type AvailabilitySlot struct {
	UUID          string `json:"uuid"`
	SpecialtyUUID string `json:"specialtyUuid"`
	Date          string `json:"date"`
	From          string `json:"from"`
	To            string `json:"to"`
	Professional  string `json:"professional,omitempty"`
}

// AppointmentRequest books a slot for a beneficiary.
type AppointmentRequest struct {
	BeneficiaryUUID  string `json:"beneficiaryUuid"`
	AvailabilityUUID string `json:"availabilityUuid"`
	SpecialtyUUID    string `json:"specialtyUuid"`
	ApprovedBy       string `json:"approvedBy,omitempty"`
}

// Appointment is a booked consultation.
type Appointment struct {
	UUID   string           `json:"uuid"`
	Slot   AvailabilitySlot `json:"slot"`
	Status string           `json:"status"`
	URL    string           `json:"url,omitempty"`
}

// ConsultationBooking is the data returned to callers of RequestConsultation.
type ConsultationBooking struct {
	Kind            ConsultationKind `json:"kind"`
	BeneficiaryUUID string           `json:"beneficiary_uuid"`
	Consultation    *Consultation    `json:"consultation,omitempty"`
	Appointment     *Appointment     `json:"appointment,omitempty"`
}

// ConsultationLog is the audit row written to consultation_logs.
type ConsultationLog struct {
	ID              string           `db:"id"`
	UserID          string           `db:"user_id"`
	BeneficiaryUUID string           `db:"beneficiary_uuid"`
	Kind            ConsultationKind `db:"kind"`
	SpecialtyUUID   string           `db:"specialty_uuid"`
	ReferenceUUID   string           `db:"reference_uuid"`
	Status          string           `db:"status"`
	SyncedSystems   []string         `db:"synced_systems"`
	CreatedAt       time.Time        `db:"created_at"`
}
