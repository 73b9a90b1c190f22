package repository

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

type MongoMessageRepo struct {
	coll *mongo.Collection
	seq  atomic.Int64
}

// NewMongoMessageRepo creates the listing index and a TTL index so the
// database enforces the retention bound even if the sweeper is down.
func NewMongoMessageRepo(coll *mongo.Collection, ttl time.Duration) *MongoMessageRepo {
	idx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetName("conversation_time_idx"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("ttl_idx").SetExpireAfterSeconds(int32(ttl.Seconds())),
		},
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), idx)
	return &MongoMessageRepo{coll: coll}
}

// stamp assigns storage identity before persisting: document id, creation
// time, and the insertion counter that breaks same-millisecond ordering
// ties. Mongo truncates timestamps to milliseconds, so the counter is what
// keeps a burst of sends in send order.
func (r *MongoMessageRepo) stamp(m *models.Message) {
	m.ID = primitive.NewObjectID().Hex()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Seq = r.seq.Add(1)
}

func (r *MongoMessageRepo) Insert(ctx context.Context, m *models.Message) (*models.Message, error) {
	r.stamp(m)
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return nil, apperr.Storage("insert message", err)
	}
	return m, nil
}

func (r *MongoMessageRepo) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, storageErr("get message", err)
	}
	return &m, nil
}

func (r *MongoMessageRepo) ListSince(ctx context.Context, conversationID string, after time.Time) ([]*models.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	if !after.IsZero() {
		filter["created_at"] = bson.M{"$gt": after}
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "seq", Value: 1},
	})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage("list messages", err)
	}
	defer cur.Close(ctx)

	var out []*models.Message
	for cur.Next(ctx) {
		var m models.Message
		if err := cur.Decode(&m); err != nil {
			return nil, apperr.Storage("decode message", err)
		}
		out = append(out, &m)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Storage("list messages", err)
	}
	return out, nil
}

func (r *MongoMessageRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Storage("delete message", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}

func (r *MongoMessageRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"conversation_id": conversationID}); err != nil {
		return apperr.Storage("cascade delete messages", err)
	}
	return nil
}

func (r *MongoMessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lte": cutoff}})
	if err != nil {
		return 0, apperr.Storage("purge messages", err)
	}
	return res.DeletedCount, nil
}
