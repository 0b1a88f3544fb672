package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/models"
)

// ProductQuery describes a catalog listing request.
type ProductQuery struct {
	Keyword    string
	Categories []string
	SortBy     string
	Page       int
	Limit      int
}

type ProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(collection *mongo.Collection) *ProductRepository {
	return &ProductRepository{
		collection: collection,
	}
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	product.ID = primitive.NewObjectID()
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, product)
	return err
}

// FindByID fetches a product by its hex id
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var product models.Product
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// FindAll lists products matching the query plus the unpaginated total.
// The keyword matches the name as a case-insensitive substring; an empty
// category list or one containing "All" disables the category filter. A
// sort field prefixed with "-" sorts descending; the field name is not
// validated against the schema.
func (r *ProductRepository) FindAll(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}

	if q.Keyword != "" {
		filter["name"] = bson.M{"$regex": primitive.Regex{
			Pattern: regexp.QuoteMeta(q.Keyword),
			Options: "i",
		}}
	}

	cats := make([]string, 0, len(q.Categories))
	all := false
	for _, c := range q.Categories {
		if c == "All" {
			all = true
		}
		if c != "" {
			cats = append(cats, c)
		}
	}
	if len(cats) > 0 && !all {
		filter["category"] = bson.M{"$in": cats}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find()

	if q.SortBy != "" {
		field := q.SortBy
		order := 1
		if strings.HasPrefix(field, "-") {
			field = field[1:]
			order = -1
		}
		findOptions.SetSort(bson.D{{Key: field, Value: order}})
	}

	if q.Page > 0 && q.Limit > 0 {
		findOptions.SetSkip(int64((q.Page - 1) * q.Limit))
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Categories returns the distinct category labels in the catalog.
func (r *ProductRepository) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

// Update applies a partial $set update to a product
func (r *ProductRepository) Update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	update["updatedAt"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": objID},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// AdjustStock increments countInStock by delta (negative to deduct).
// Callers are responsible for checking availability first; the store
// itself does not reject a negative result.
func (r *ProductRepository) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"countInStock": delta},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a product permanently. Historical orders keep their
// denormalized item snapshots, so there is no cascade.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}
