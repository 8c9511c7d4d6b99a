package enums

// FulfillmentStatus tracks whether goods left the warehouse.
type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusFulfilled   FulfillmentStatus = "fulfilled"
)

var fulfillmentStatuses = newSet("fulfillment status",
	FulfillmentStatusUnfulfilled,
	FulfillmentStatusFulfilled,
)

func (v FulfillmentStatus) String() string { return string(v) }

func (v FulfillmentStatus) IsValid() bool { return fulfillmentStatuses.has(v) }

func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) { return fulfillmentStatuses.parse(value) }
