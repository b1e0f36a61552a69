// Package mongo stores threads and profiles in MongoDB collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type Storage struct {
	client  *mongo.Client
	threads *mongo.Collection
	users   *mongo.Collection
}

type threadDocument struct {
	ID          bson.ObjectID `bson:"_id"`
	Body        string        `bson:"body"`
	CreatedTime time.Time     `bson:"created_time"`
	Image       string        `bson:"image"`
	OwnerID     *string       `bson:"owner_id"`
	LikesCount  int           `bson:"likes_count"`
	LikedBy     []string      `bson:"liked_by,omitempty"`
}

type userDocument struct {
	ID       string `bson:"_id"`
	UserName string `bson:"user_name"`
	Image    string `bson:"image"`
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	opts := options.Client().
		ApplyURI(cfg.Private.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Public.Mongo.Database)
	s := &Storage{
		client:  client,
		threads: db.Collection(cfg.Public.Mongo.ThreadsCollection),
		users:   db.Collection(cfg.Public.Mongo.UsersCollection),
	}

	_, err = s.threads.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_time", Value: -1}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create created_time index: %w", err)
	}

	logger.Log.Info("connected to mongo", "database", cfg.Public.Mongo.Database)
	return s, nil
}

func (s *Storage) Cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// CreateThread inserts the record. liked_by is written only when set, so
// records made without it stay without the field.
func (s *Storage) CreateThread(ctx context.Context, thread domain.Thread) (domain.ThreadId, error) {
	var owner any
	if thread.OwnerId != nil {
		owner = *thread.OwnerId
	}
	doc := bson.D{
		{Key: "body", Value: thread.Body},
		{Key: "created_time", Value: thread.CreatedTime},
		{Key: "image", Value: thread.Image},
		{Key: "owner_id", Value: owner},
		{Key: "likes_count", Value: thread.LikesCount},
	}
	if thread.LikedBy != nil {
		doc = append(doc, bson.E{Key: "liked_by", Value: thread.LikedBy})
	}

	res, err := s.threads.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert thread: %w", err)
	}
	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *Storage) RecentThreads(ctx context.Context, limit int) ([]domain.Thread, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_time", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.threads.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []threadDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode threads: %w", err)
	}

	threads := make([]domain.Thread, 0, len(docs))
	for _, d := range docs {
		threads = append(threads, d.toDomain())
	}
	return threads, nil
}

func (d threadDocument) toDomain() domain.Thread {
	t := domain.Thread{
		Id:          d.ID.Hex(),
		Body:        d.Body,
		CreatedTime: d.CreatedTime.UTC(),
		Image:       d.Image,
		OwnerId:     d.OwnerID,
		LikesCount:  d.LikesCount,
	}
	if d.LikedBy != nil {
		t.LikedBy = []domain.UserId(d.LikedBy)
	}
	return t
}

func (s *Storage) GetProfile(ctx context.Context, id domain.UserId) (*domain.Profile, error) {
	var doc userDocument
	err := s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return &domain.Profile{DisplayName: doc.UserName, AvatarURL: doc.Image}, nil
}

func (s *Storage) PutProfile(ctx context.Context, id domain.UserId, profile domain.Profile) error {
	_, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "user_name", Value: profile.DisplayName},
			{Key: "image", Value: profile.AvatarURL},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
