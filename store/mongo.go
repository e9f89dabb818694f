package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo implements Store over a mongo database.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) Collection(name string) Collection {
	return &mongoCollection{c: m.db.Collection(name)}
}

type mongoCollection struct {
	c *mongo.Collection
}

func (mc *mongoCollection) InsertOne(ctx context.Context, doc any) error {
	_, err := mc.c.InsertOne(ctx, doc)
	return err
}

func (mc *mongoCollection) FindByID(ctx context.Context, id primitive.ObjectID, out any) error {
	err := mc.c.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func (mc *mongoCollection) Find(ctx context.Context, q Query, out any) error {
	key := q.SortKey()
	if key == "" {
		return ErrNoSortKey
	}

	filter := bson.M{}
	for k, v := range q.EqFilter() {
		filter[k] = v
	}

	// "Start after the last document" translated to the (key, _id)
	// ordering: strictly greater on the key, or equal on the key and
	// greater on the id.
	if cur := q.AfterCursor(); cur != nil {
		if key == "_id" {
			filter["_id"] = bson.M{"$gt": cur.ID}
		} else {
			filter["$or"] = []bson.M{
				{key: bson.M{"$gt": cur.Key}},
				{key: cur.Key, "_id": bson.M{"$gt": cur.ID}},
			}
		}
	}

	opts := options.Find().SetSort(sortPattern(key))
	if q.PageLimit() > 0 {
		opts.SetLimit(q.PageLimit())
	}

	cur, err := mc.c.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

// sortPattern orders by (key, _id). The server rejects a sort document that
// names the same field twice, so sorting by _id itself carries no tie-break.
func sortPattern(key string) bson.D {
	if key == "_id" {
		return bson.D{{Key: "_id", Value: 1}}
	}
	return bson.D{{Key: key, Value: 1}, {Key: "_id", Value: 1}}
}

func (mc *mongoCollection) Count(ctx context.Context, f Filter) (int64, error) {
	filter := bson.M{}
	for k, v := range f {
		filter[k] = v
	}
	return mc.c.CountDocuments(ctx, filter)
}

func (mc *mongoCollection) SetFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	res, err := mc.c.UpdateByID(ctx, id, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mc *mongoCollection) IncFields(ctx context.Context, id primitive.ObjectID, fields map[string]any) error {
	res, err := mc.c.UpdateByID(ctx, id, bson.M{"$inc": bson.M(fields)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
