package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/config"
)

func NewMongoClient(cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// storageErr maps driver errors to the service taxonomy.
func storageErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(op + ": not found")
	}
	return apperr.Storage(op, err)
}
