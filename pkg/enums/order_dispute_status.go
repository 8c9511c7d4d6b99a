package enums

// OrderDisputeStatus summarises the dispute state on the order row.
type OrderDisputeStatus string

const (
	OrderDisputeStatusNone     OrderDisputeStatus = "none"
	OrderDisputeStatusDisputed OrderDisputeStatus = "disputed"
	OrderDisputeStatusLost     OrderDisputeStatus = "lost"
)

var orderDisputeStatuses = newSet("order dispute status",
	OrderDisputeStatusNone,
	OrderDisputeStatusDisputed,
	OrderDisputeStatusLost,
)

func (v OrderDisputeStatus) String() string { return string(v) }

func (v OrderDisputeStatus) IsValid() bool { return orderDisputeStatuses.has(v) }

func ParseOrderDisputeStatus(value string) (OrderDisputeStatus, error) { return orderDisputeStatuses.parse(value) }
