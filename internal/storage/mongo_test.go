package storage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"dataservices/internal/model"
)

func TestProductDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	in := model.Product{
		ID:          "42",
		TenantID:    "acme",
		Name:        "Widget",
		Description: "A widget",
		Price:       decimal.RequireFromString("9.99"),
	}

	d, err := toDocument(&in)
	require.NoError(t, err)
	assert.Equal(t, "acme", d.TenantID)
	assert.Equal(t, "42", d.ProductID)
	assert.True(t, d.ObjectID.IsZero())

	raw, err := bson.Marshal(d)
	require.NoError(t, err)
	var decoded productDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	out, err := decoded.toModel()
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.TenantID, out.TenantID)
	assert.True(t, in.Price.Equal(out.Price))
}

func TestProductDocumentPriceExtremes(t *testing.T) {
	t.Parallel()

	for _, price := range []string{"1e40", "1234567890123456789012345678901234", "0.000001"} {
		in := model.Product{ID: "1", TenantID: "acme", Name: "Widget", Price: decimal.RequireFromString(price)}
		require.NoError(t, in.Validate())

		d, err := toDocument(&in)
		require.NoError(t, err, price)
		out, err := d.toModel()
		require.NoError(t, err, price)
		assert.True(t, in.Price.Equal(out.Price), "%s came back as %s", price, out.Price)
	}
}

func TestScopeFilters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bson.D{{Key: "tenant_id", Value: "acme"}}, scope("acme"))
	assert.Equal(t,
		bson.D{{Key: "tenant_id", Value: "acme"}, {Key: "product_id", Value: "42"}},
		scopeID("acme", "42"),
	)
}
