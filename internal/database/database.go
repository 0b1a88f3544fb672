package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a client and verifies the connection with a ping.
func Connect(uri string) *mongo.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatal("failed to connect to MongoDB:", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("failed to ping MongoDB:", err)
	}

	log.Println("connected to MongoDB")
	return client
}

// Txn runs functions inside a MongoDB session transaction so that
// multi-document mutations commit or abort as one unit.
type Txn struct {
	client *mongo.Client
}

func NewTxn(client *mongo.Client) *Txn {
	return &Txn{client: client}
}

// Run executes fn in a transaction. Any error returned by fn aborts the
// transaction and is returned unchanged to the caller.
func (t *Txn) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
