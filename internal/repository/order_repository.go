package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/models"
)

type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(collection *mongo.Collection) *OrderRepository {
	return &OrderRepository{
		collection: collection,
	}
}

// Insert persists a new order
func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, order)
	return err
}

// FindByID fetches an order by its hex id
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var order models.Order
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

// FindByIDWithUser fetches an order with its owner's name and email
// resolved for display.
func (r *OrderRepository) FindByIDWithUser(ctx context.Context, id string) (*models.OrderWithUser, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": objID}}},
		lookupUserStage(),
		unwindCustomerStage(),
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.OrderWithUser
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}

	return &orders[0], nil
}

// FindByUser lists a customer's own orders
func (r *OrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"user": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// FindAllWithUser lists every order with the owning user's name resolved,
// for the admin back-office.
func (r *OrderRepository) FindAllWithUser(ctx context.Context) ([]models.OrderWithUser, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		lookupUserStage(),
		unwindCustomerStage(),
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.OrderWithUser{}
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// UpdateItems overwrites an order's items and prices in one update.
func (r *OrderRepository) UpdateItems(ctx context.Context, id primitive.ObjectID, items []models.OrderItem, taxPrice, shippingPrice, totalPrice float64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"orderItems":    items,
			"taxPrice":      taxPrice,
			"shippingPrice": shippingPrice,
			"totalPrice":    totalPrice,
			"updatedAt":     time.Now(),
		}},
	)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// SetDelivered sets the delivered flag unconditionally.
func (r *OrderRepository) SetDelivered(ctx context.Context, id primitive.ObjectID, delivered bool) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var order models.Order
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isDelivered": delivered, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

// RemoveItems pulls every line item whose product reference is in
// productIDs and returns the updated order. Stock is deliberately left
// untouched here; see the order service for the full-deletion path.
func (r *OrderRepository) RemoveItems(ctx context.Context, id string, productIDs []primitive.ObjectID) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var order models.Order
	err = r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objID},
		bson.M{
			"$pull": bson.M{"orderItems": bson.M{"product": bson.M{"$in": productIDs}}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &order, nil
}

// Delete removes an order permanently.
func (r *OrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// Stats aggregates order counts, revenue, per-month sales and the top
// five products by quantity for the given window. A nil bound leaves
// that side of the window open.
func (r *OrderRepository) Stats(ctx context.Context, from, to *time.Time) (*models.OrderStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	match := bson.M{}
	if from != nil || to != nil {
		window := bson.M{}
		if from != nil {
			window["$gte"] = *from
		}
		if to != nil {
			window["$lt"] = *to
		}
		match["createdAt"] = window
	}

	stats := &models.OrderStats{
		MonthlySales: []models.MonthlySales{},
		TopProducts:  []models.TopProduct{},
	}

	// Totals and delivered/pending split.
	totalsPipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalOrders":  bson.M{"$sum": 1},
			"delivered":    bson.M{"$sum": bson.M{"$cond": bson.A{"$isDelivered", 1, 0}}},
			"totalRevenue": bson.M{"$sum": "$totalPrice"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, totalsPipeline)
	if err != nil {
		return nil, err
	}
	var totals []struct {
		TotalOrders  int     `bson:"totalOrders"`
		Delivered    int     `bson:"delivered"`
		TotalRevenue float64 `bson:"totalRevenue"`
	}
	if err = cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	if len(totals) > 0 {
		stats.TotalOrders = totals[0].TotalOrders
		stats.DeliveredOrders = totals[0].Delivered
		stats.PendingOrders = totals[0].TotalOrders - totals[0].Delivered
		stats.TotalRevenue = totals[0].TotalRevenue
	}

	// Per-month sales buckets for charts.
	salesPipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: bson.M{
			"month": bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$createdAt"}},
			"total": "$totalPrice",
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$month",
			"sales": bson.M{"$sum": "$total"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err = r.collection.Aggregate(ctx, salesPipeline)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(ctx, &stats.MonthlySales); err != nil {
		return nil, err
	}

	// Top five products by ordered quantity.
	topPipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$orderItems"}},
		{{Key: "$group", Value: bson.M{
			"_id": "$orderItems.name",
			"qty": bson.M{"$sum": "$orderItems.qty"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "qty", Value: -1}}}},
		{{Key: "$limit", Value: 5}},
	}

	cursor, err = r.collection.Aggregate(ctx, topPipeline)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(ctx, &stats.TopProducts); err != nil {
		return nil, err
	}

	return stats, nil
}

// StatsByUser aggregates order count and spend per customer for the
// admin customer listing.
func (r *OrderRepository) StatsByUser(ctx context.Context) (map[primitive.ObjectID]models.UserOrderStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$user",
			"totalOrders": bson.M{"$sum": 1},
			"totalSpent":  bson.M{"$sum": "$totalPrice"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		User        primitive.ObjectID `bson:"_id"`
		TotalOrders int                `bson:"totalOrders"`
		TotalSpent  float64            `bson:"totalSpent"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := make(map[primitive.ObjectID]models.UserOrderStats, len(rows))
	for _, row := range rows {
		stats[row.User] = models.UserOrderStats{
			TotalOrders: row.TotalOrders,
			TotalSpent:  row.TotalSpent,
		}
	}
	return stats, nil
}

func lookupUserStage() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         "users",
		"localField":   "user",
		"foreignField": "_id",
		"as":           "customer",
	}}}
}

func unwindCustomerStage() bson.D {
	return bson.D{{Key: "$unwind", Value: bson.M{
		"path":                       "$customer",
		"preserveNullAndEmptyArrays": true,
	}}}
}
