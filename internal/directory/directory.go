package directory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/cache"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

// Directory is the user-service seam the chat core consumes: id to display
// attributes, plus recognition of the reserved automated account.
type Directory interface {
	Lookup(ctx context.Context, userID string) (*models.User, error)
	IsReserved(username string) bool
}

// MongoDirectory reads the users collection owned by the user service, with
// a redis read-through cache in front.
type MongoDirectory struct {
	coll     *mongo.Collection
	cache    *cache.Client
	reserved string
}

func NewMongoDirectory(coll *mongo.Collection, c *cache.Client, reservedUsername string) *MongoDirectory {
	return &MongoDirectory{coll: coll, cache: c, reserved: reservedUsername}
}

func (d *MongoDirectory) Lookup(ctx context.Context, userID string) (*models.User, error) {
	if d.cache != nil {
		if u, err := d.cache.GetUser(ctx, userID); err == nil && u != nil {
			return u, nil
		}
	}

	var u models.User
	if err := d.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("lookup user", err)
	}

	if d.cache != nil {
		_ = d.cache.SetUser(ctx, &u)
	}
	return &u, nil
}

func (d *MongoDirectory) IsReserved(username string) bool {
	return username != "" && username == d.reserved
}

// Static is a fixed in-memory directory for tests and local development.
type Static struct {
	Users    map[string]*models.User
	Reserved string
}

func (s *Static) Lookup(ctx context.Context, userID string) (*models.User, error) {
	u, ok := s.Users[userID]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *Static) IsReserved(username string) bool {
	return username != "" && username == s.Reserved
}
