package validators

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
	"github.com/angelmondragon/settlement-engine/pkg/money"
)

// domainTags are the settlement-specific struct tags. Each reads the field
// the same way the handler will, so a passing tag means parsing succeeds.
var domainTags = map[string]struct {
	check   validator.Func
	message string
}{
	"money": {
		check: func(fl validator.FieldLevel) bool {
			cents, err := money.ParseCents(fl.Field().String())
			return err == nil && cents > 0
		},
		message: "must be a positive amount with at most two decimals",
	},
	"order_status": {
		check: func(fl validator.FieldLevel) bool {
			return enums.OrderStatus(normalized(fl)).IsValid()
		},
		message: "must be a known order status",
	},
	"service_type": {
		check: func(fl validator.FieldLevel) bool {
			return enums.ServiceType(normalized(fl)).IsValid()
		},
		message: "must be a known service type",
	},
}

func normalized(fl validator.FieldLevel) string {
	return strings.ToLower(strings.TrimSpace(fl.Field().String()))
}

func registerDomainTags(v *validator.Validate) {
	for tag, def := range domainTags {
		// only fails on a malformed tag name
		if err := v.RegisterValidation(tag, def.check); err != nil {
			panic(err)
		}
	}
}
