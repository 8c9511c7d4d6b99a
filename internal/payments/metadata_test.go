package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/settlement-engine/pkg/enums"
)

func TestMetadataRoundTripsThroughColumnAndGateway(t *testing.T) {
	variants := []Metadata{
		OrderPaymentMetadata{UserID: "u1", OrderNumber: "ORD-1"},
		ServicePaymentMetadata{UserID: "u2", ServiceType: enums.ServiceTypeCourses, ServiceName: "Go 101", PackageTier: "pro"},
	}
	for _, m := range variants {
		raw, err := EncodeMetadata(m)
		require.NoError(t, err)
		decoded, err := DecodeMetadata(raw)
		require.NoError(t, err)
		assert.Equal(t, m, decoded)

		parsed, err := ParseGatewayMetadata(m.gatewayFields())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}

func TestParseGatewayMetadataRejectsUnknownShapes(t *testing.T) {
	_, err := ParseGatewayMetadata(map[string]string{"flow": "loyalty", "user_id": "u"})
	assert.Error(t, err)

	_, err = ParseGatewayMetadata(map[string]string{"flow": "order", "user_id": "u"})
	assert.Error(t, err)

	m, err := ParseGatewayMetadata(map[string]string{"user_id": "u", "order_number": "ORD-9"})
	require.NoError(t, err)
	assert.Equal(t, MetadataKindOrder, m.Kind())

	_, err = DecodeMetadata(nil)
	assert.Error(t, err)
}
