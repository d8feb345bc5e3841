package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by writes addressed to a session id that does not exist.
var ErrNotFound = errors.New("session not found")

// Repository provides session persistence operations.
// Lookups return (nil, nil) when nothing matches.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	SetRefreshHash(ctx context.Context, id, hash string) error
	FindValid(ctx context.Context, id, userID string) (*Session, error)
	ListValidByUser(ctx context.Context, userID string) ([]*Session, error)
	Invalidate(ctx context.Context, id string) error
	InvalidateAllByUser(ctx context.Context, userID string) (int64, error)
}

// Pinger is implemented by repositories backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type sessionDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	UserID             string             `bson:"userId"`
	HashedRefreshToken string             `bson:"hashedRefreshToken,omitempty"`
	UserAgent          string             `bson:"userAgent,omitempty"`
	IPAddress          string             `bson:"ipAddress,omitempty"`
	IsValid            bool               `bson:"isValid"`
	CreatedAt          time.Time          `bson:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"`
}

func (d *sessionDocument) session() *Session {
	return &Session{
		ID:                 d.ID.Hex(),
		UserID:             d.UserID,
		HashedRefreshToken: d.HashedRefreshToken,
		UserAgent:          d.UserAgent,
		IPAddress:          d.IPAddress,
		IsValid:            d.IsValid,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the (userId, isValid) index used by the refresh scan
// and the (_id, userId, isValid) index used by direct lookups.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isValid", Value: 1}}},
		{Keys: bson.D{{Key: "_id", Value: 1}, {Key: "userId", Value: 1}, {Key: "isValid", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	doc := sessionDocument{
		ID:        primitive.NewObjectID(),
		UserID:    s.UserID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
		IsValid:   s.IsValid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return err
	}
	s.ID = doc.ID.Hex()
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (r *MongoRepository) SetRefreshHash(ctx context.Context, id, hash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"hashedRefreshToken": hash,
		"updatedAt":          time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) FindValid(ctx context.Context, id, userID string) (*Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var d sessionDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid, "userId": userID, "isValid": true}).Decode(&d); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return d.session(), nil
}

func (r *MongoRepository) ListValidByUser(ctx context.Context, userID string) ([]*Session, error) {
	cur, err := r.col.Find(ctx, bson.M{"userId": userID, "isValid": true}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []sessionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].session())
	}
	return out, nil
}

func (r *MongoRepository) Invalidate(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"isValid": false, "updatedAt": time.Now().UTC()}})
	return err
}

func (r *MongoRepository) InvalidateAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.col.UpdateMany(ctx, bson.M{"userId": userID, "isValid": true}, bson.M{"$set": bson.M{"isValid": false, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
