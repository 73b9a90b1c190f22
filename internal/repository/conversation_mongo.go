package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

type MongoConversationRepo struct {
	coll *mongo.Collection
}

func NewMongoConversationRepo(coll *mongo.Collection) *MongoConversationRepo {
	idx := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "members", Value: 1}},
			Options: options.Index().SetName("members_idx"),
		},
		{
			Keys:    bson.D{{Key: "last_message.sent_at", Value: -1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("activity_idx"),
		},
	}
	_, _ = coll.Indexes().CreateMany(context.Background(), idx)
	return &MongoConversationRepo{coll: coll}
}

func (r *MongoConversationRepo) Insert(ctx context.Context, c *models.Conversation) (*models.Conversation, error) {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID().Hex()
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return nil, apperr.Storage("insert conversation", err)
	}
	return c, nil
}

func (r *MongoConversationRepo) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, storageErr("get conversation", err)
	}
	return &c, nil
}

func (r *MongoConversationRepo) FindDirectByPair(ctx context.Context, a, b string) (*models.Conversation, error) {
	filter := bson.M{
		"is_group": false,
		"members":  bson.M{"$all": bson.A{a, b}, "$size": 2},
	}
	var c models.Conversation
	if err := r.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, storageErr("find direct conversation", err)
	}
	return &c, nil
}

func (r *MongoConversationRepo) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	filter := bson.M{
		"members":    userID,
		"deleted_by": bson.M{"$ne": userID},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "last_message.sent_at", Value: -1},
		{Key: "updated_at", Value: -1},
	})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Storage("list conversations", err)
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, apperr.Storage("decode conversation", err)
		}
		out = append(out, &c)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Storage("list conversations", err)
	}
	return out, nil
}

func (r *MongoConversationRepo) Rename(ctx context.Context, id, name string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"name":       name,
		"updated_at": time.Now().UTC(),
	}})
}

func (r *MongoConversationRepo) SetGroupImage(ctx context.Context, id, url string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"group_image": url,
		"updated_at":  time.Now().UTC(),
	}})
}

func (r *MongoConversationRepo) AddMembers(ctx context.Context, id string, newIDs []string, joinedAt time.Time) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for _, uid := range newIDs {
		// no retroactive visibility of prior history
		set["cleared_history."+uid] = joinedAt
	}
	update := bson.M{
		"$addToSet": bson.M{"members": bson.M{"$each": newIDs}},
		"$set":      set,
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoConversationRepo) RemoveMember(ctx context.Context, id, userID, newAdmin string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if newAdmin != "" {
		set["admin_id"] = newAdmin
	}
	update := bson.M{
		"$pull": bson.M{"members": userID, "deleted_by": userID},
		"$unset": bson.M{
			"unread_count." + userID:    "",
			"cleared_history." + userID: "",
		},
		"$set": set,
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoConversationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Storage("delete conversation", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

func (r *MongoConversationRepo) ApplyAppend(ctx context.Context, id string, sum *models.MessageSummary, recipients []string) error {
	inc := bson.M{}
	for _, uid := range recipients {
		inc["unread_count."+uid] = 1
	}
	update := bson.M{
		"$set": bson.M{
			"last_message": sum,
			"updated_at":   sum.SentAt,
			"deleted_by":   bson.A{},
		},
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	return r.updateOne(ctx, id, update)
}

func (r *MongoConversationRepo) MarkRead(ctx context.Context, id, userID string) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"unread_count." + userID: 0,
	}})
}

func (r *MongoConversationRepo) SetCleared(ctx context.Context, id, userID string, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{
		"cleared_history." + userID: at,
	}})
}

func (r *MongoConversationRepo) SoftDelete(ctx context.Context, id, userID string, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{
		"$addToSet": bson.M{"deleted_by": userID},
		"$set":      bson.M{"cleared_history." + userID: at},
	})
}

func (r *MongoConversationRepo) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return apperr.Storage("update conversation", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}
