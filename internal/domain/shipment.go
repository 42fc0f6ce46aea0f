package domain

import "time"

// ShipmentStatus is the aggregator-reported state of a shipment.
type ShipmentStatus string

const (
	ShipmentPending         ShipmentStatus = "pending"
	ShipmentAWBGenerated    ShipmentStatus = "awb_generated"
	ShipmentPickupScheduled ShipmentStatus = "pickup_scheduled"
	ShipmentPickupCompleted ShipmentStatus = "pickup_completed"
	ShipmentInTransit       ShipmentStatus = "in_transit"
	ShipmentOutForDelivery  ShipmentStatus = "out_for_delivery"
	ShipmentDelivered       ShipmentStatus = "delivered"
	ShipmentRTOInitiated    ShipmentStatus = "rto_initiated"
	ShipmentRTODelivered    ShipmentStatus = "rto_delivered"
	ShipmentCancelled       ShipmentStatus = "cancelled"
	ShipmentLost            ShipmentStatus = "lost"

	// ShipmentUnknown is what unrecognised statuses normalise to.
	ShipmentUnknown ShipmentStatus = "unknown"
)

var shipmentOrdinals = map[ShipmentStatus]int{
	ShipmentPending:         0,
	ShipmentAWBGenerated:    1,
	ShipmentPickupScheduled: 2,
	ShipmentPickupCompleted: 3,
	ShipmentInTransit:       4,
	ShipmentOutForDelivery:  5,
	ShipmentDelivered:       6,
	ShipmentRTOInitiated:    7,
	ShipmentRTODelivered:    8,
	ShipmentCancelled:       9,
	ShipmentLost:            10,
}

// ParseShipmentStatus maps a raw status onto the closed set. Anything
// unrecognised becomes ShipmentUnknown.
func ParseShipmentStatus(raw string) ShipmentStatus {
	s := ShipmentStatus(raw)
	if _, ok := shipmentOrdinals[s]; ok {
		return s
	}
	return ShipmentUnknown
}

// Ordinal is the fixed position of s in the progress display, or -1 for
// unknown statuses.
func (s ShipmentStatus) Ordinal() int {
	if o, ok := shipmentOrdinals[s]; ok {
		return o
	}
	return -1
}

// TrackingEvent is one entry of a shipment's tracking history.
type TrackingEvent struct {
	Status    string    `json:"status"`
	Activity  string    `json:"activity,omitempty"`
	Location  string    `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Shipment is owned by the backend and the shipping aggregator.
type Shipment struct {
	ID              string          `json:"id,omitempty"`
	AWBCode         string          `json:"awb_code,omitempty"`
	CourierName     string          `json:"courier_name"`
	Status          ShipmentStatus  `json:"status"`
	TrackingHistory []TrackingEvent `json:"tracking_history"`
}

// CourierOption is one courier able to deliver a package, with its price in
// minor units.
type CourierOption struct {
	CourierID     string  `json:"courier_id"`
	CourierName   string  `json:"courier_name"`
	FreightCharge int64   `json:"freight_charge"`
	CODCharge     int64   `json:"cod_charge,omitempty"`
	EstimatedDays int     `json:"estimated_days,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
}
