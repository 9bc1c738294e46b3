// internal/storage/mongo.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"dataservices/internal/model"
)

var ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

// MongoOptions configures the product store connection.
type MongoOptions struct {
	URL            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
	RetryAttempts  int
	RetryInterval  time.Duration
}

// ConnectMongo creates a client and pings the server, retrying up to
// RetryAttempts times.
func ConnectMongo(ctx context.Context, opts MongoOptions) (*mongo.Client, error) {
	attempts := max(opts.RetryAttempts, 1)

	var lastErr error
	for range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(opts.URL).
				SetConnectTimeout(opts.ConnectTimeout),
		)
		if err == nil {
			if lastErr = client.Ping(ctx, nil); lastErr == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(opts.RetryInterval):
		}
	}
	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

type productDocument struct {
	ObjectID    bson.ObjectID   `bson:"_id,omitempty"`
	TenantID    string          `bson:"tenant_id"`
	ProductID   string          `bson:"product_id"`
	Name        string          `bson:"name"`
	Description string          `bson:"description"`
	Price       bson.Decimal128 `bson:"price"`
}

func toDocument(p *model.Product) (productDocument, error) {
	// coefficient and exponent, so large exponents are not expanded into digits
	price, err := bson.ParseDecimal128(fmt.Sprintf("%dE%d", p.Price.Coefficient(), p.Price.Exponent()))
	if err != nil {
		return productDocument{}, fmt.Errorf("encode price %s: %w", p.Price, err)
	}
	return productDocument{
		TenantID:    p.TenantID,
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
	}, nil
}

func (d productDocument) toModel() (model.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return model.Product{}, fmt.Errorf("decode price of product %s: %w", d.ProductID, err)
	}
	return model.Product{
		ID:          d.ProductID,
		TenantID:    d.TenantID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
	}, nil
}

// ProductStore keeps products in a MongoDB collection shared by all tenants.
// Documents are addressed by (tenant_id, product_id), never by id alone.
type ProductStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewProductStore(client *mongo.Client, database, collection string) *ProductStore {
	return &ProductStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

func scope(tenantID string) bson.D {
	return bson.D{{Key: "tenant_id", Value: tenantID}}
}

func scopeID(tenantID, id string) bson.D {
	return bson.D{{Key: "tenant_id", Value: tenantID}, {Key: "product_id", Value: id}}
}

// EnsureIndexes creates the unique (tenant_id, product_id) index.
func (s *ProductStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("tenant_product"),
	})
	if err != nil {
		return fmt.Errorf("create product index: %w", err)
	}
	return nil
}

func (s *ProductStore) FindByTenant(ctx context.Context, tenantID string) ([]model.Product, error) {
	cur, err := s.coll.Find(ctx, scope(tenantID), options.Find().SetSort(bson.D{{Key: "product_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	products := make([]model.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *ProductStore) FindByTenantAndID(ctx context.Context, tenantID, id string) (*model.Product, error) {
	var d productDocument
	err := s.coll.FindOne(ctx, scopeID(tenantID, id)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", id, err)
	}
	p, err := d.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save inserts the product or replaces the tenant's document with the same id.
func (s *ProductStore) Save(ctx context.Context, p *model.Product) (*model.Product, error) {
	d, err := toDocument(p)
	if err != nil {
		return nil, err
	}
	_, err = s.coll.ReplaceOne(ctx, scopeID(p.TenantID, p.ID), d, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("save product %s: %w", p.ID, err)
	}
	saved := *p
	return &saved, nil
}

// DeleteByTenantAndID reports whether a document owned by the tenant was removed.
func (s *ProductStore) DeleteByTenantAndID(ctx context.Context, tenantID, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, scopeID(tenantID, id))
	if err != nil {
		return false, fmt.Errorf("delete product %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *ProductStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *ProductStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
