package enums

// ServiceType identifies what a checkout session pays for.
type ServiceType string

const (
	ServiceTypeShopping     ServiceType = "shopping"
	ServiceTypeIPTV         ServiceType = "iptv"
	ServiceTypeMessaging    ServiceType = "messaging"
	ServiceTypeNews         ServiceType = "news"
	ServiceTypeCourses      ServiceType = "courses"
	ServiceTypeAppointments ServiceType = "appointments"
)

var serviceTypes = newSet("service type",
	ServiceTypeShopping,
	ServiceTypeIPTV,
	ServiceTypeMessaging,
	ServiceTypeNews,
	ServiceTypeCourses,
	ServiceTypeAppointments,
)

func (v ServiceType) String() string { return string(v) }

func (v ServiceType) IsValid() bool { return serviceTypes.has(v) }

func ParseServiceType(value string) (ServiceType, error) { return serviceTypes.parse(value) }
