package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/settlement-engine/pkg/errors"
)

// MetadataKind tags which checkout flow a session belongs to.
type MetadataKind string

const (
	MetadataKindOrder   MetadataKind = "order"
	MetadataKindService MetadataKind = "service"
)

// Gateway metadata keys.
const (
	metaFlow        = "flow"
	metaUserID      = "user_id"
	metaOrderNumber = "order_number"
	metaServiceType = "service_type"
	metaServiceName = "service_name"
	metaPackageTier = "package_tier"
)

// Metadata is the closed set of reconciliation payloads a checkout session
// carries. Only OrderPaymentMetadata and ServicePaymentMetadata implement it.
type Metadata interface {
	Kind() MetadataKind
	User() string
	validate() error
	gatewayFields() map[string]string
	description() string
}

// OrderPaymentMetadata ties a session to a pending order.
type OrderPaymentMetadata struct {
	UserID      string `json:"user_id"`
	OrderNumber string `json:"order_number"`
}

func (OrderPaymentMetadata) Kind() MetadataKind { return MetadataKindOrder }
func (m OrderPaymentMetadata) User() string { return m.UserID }

func (m OrderPaymentMetadata) validate() error {
	if strings.TrimSpace(m.UserID) == "" || strings.TrimSpace(m.OrderNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order payment requires user id and order number")
	}
	return nil
}

func (m OrderPaymentMetadata) gatewayFields() map[string]string {
	return map[string]string{
		metaFlow:        string(MetadataKindOrder),
		metaUserID:      m.UserID,
		metaOrderNumber: m.OrderNumber,
		metaServiceType: string(enums.ServiceTypeShopping),
	}
}

func (m OrderPaymentMetadata) description() string {
	return fmt.Sprintf("Order %s", m.OrderNumber)
}

// ServicePaymentMetadata describes a purchase of a non-order service package.
type ServicePaymentMetadata struct {
	UserID      string            `json:"user_id"`
	ServiceType enums.ServiceType `json:"service_type"`
	ServiceName string            `json:"service_name"`
	PackageTier string            `json:"package_tier,omitempty"`
}

func (ServicePaymentMetadata) Kind() MetadataKind { return MetadataKindService }
func (m ServicePaymentMetadata) User() string { return m.UserID }

func (m ServicePaymentMetadata) validate() error {
	if strings.TrimSpace(m.UserID) == "" || strings.TrimSpace(m.ServiceName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "service payment requires user id and service name")
	}
	if !m.ServiceType.IsValid() || m.ServiceType == enums.ServiceTypeShopping {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid service type %q", m.ServiceType))
	}
	return nil
}

func (m ServicePaymentMetadata) gatewayFields() map[string]string {
	fields := map[string]string{
		metaFlow:        string(MetadataKindService),
		metaUserID:      m.UserID,
		metaServiceType: string(m.ServiceType),
		metaServiceName: m.ServiceName,
	}
	if m.PackageTier != "" {
		fields[metaPackageTier] = m.PackageTier
	}
	return fields
}

func (m ServicePaymentMetadata) description() string {
	if m.PackageTier == "" {
		return m.ServiceName
	}
	return fmt.Sprintf("%s (%s)", m.ServiceName, m.PackageTier)
}

type envelope struct {
	Kind        MetadataKind      `json:"kind"`
	UserID      string            `json:"user_id"`
	OrderNumber string            `json:"order_number,omitempty"`
	ServiceType enums.ServiceType `json:"service_type,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
	PackageTier string            `json:"package_tier,omitempty"`
}

// EncodeMetadata renders metadata for the payments.metadata column.
func EncodeMetadata(m Metadata) (json.RawMessage, error) {
	var env envelope
	switch v := m.(type) {
	case OrderPaymentMetadata:
		env = envelope{Kind: MetadataKindOrder, UserID: v.UserID, OrderNumber: v.OrderNumber}
	case ServicePaymentMetadata:
		env = envelope{Kind: MetadataKindService, UserID: v.UserID, ServiceType: v.ServiceType, ServiceName: v.ServiceName, PackageTier: v.PackageTier}
	default:
		return nil, fmt.Errorf("unsupported metadata %T", m)
	}
	return json.Marshal(env)
}

// DecodeMetadata parses the payments.metadata column back into its variant.
func DecodeMetadata(raw json.RawMessage) (Metadata, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payment metadata is empty")
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode payment metadata: %w", err)
	}
	return env.variant()
}

// ParseGatewayMetadata rebuilds metadata from the key/value pairs echoed back
// by the gateway on webhook events.
func ParseGatewayMetadata(fields map[string]string) (Metadata, error) {
	env := envelope{
		Kind:        MetadataKind(fields[metaFlow]),
		UserID:      fields[metaUserID],
		OrderNumber: fields[metaOrderNumber],
		ServiceType: enums.ServiceType(fields[metaServiceType]),
		ServiceName: fields[metaServiceName],
		PackageTier: fields[metaPackageTier],
	}
	if env.Kind == "" && env.OrderNumber != "" {
		env.Kind = MetadataKindOrder
	}
	return env.variant()
}

func (e envelope) variant() (Metadata, error) {
	var m Metadata
	switch e.Kind {
	case MetadataKindOrder:
		m = OrderPaymentMetadata{UserID: e.UserID, OrderNumber: e.OrderNumber}
	case MetadataKindService:
		m = ServicePaymentMetadata{UserID: e.UserID, ServiceType: e.ServiceType, ServiceName: e.ServiceName, PackageTier: e.PackageTier}
	default:
		return nil, fmt.Errorf("unknown payment metadata kind %q", e.Kind)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
