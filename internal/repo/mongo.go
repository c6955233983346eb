package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/miradorstack/mirador-intel/internal/utils"
)

// MongoStore maps document paths "collection/id" onto MongoDB collections
// keyed by _id. Log collections receive plain inserted documents.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	timeout  time.Duration
}

// NewMongoStore connects to uri and verifies the primary is reachable.
func NewMongoStore(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = "mirador_intel"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, 2*timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, utils.NewAppError("mongo.connect", "failed to connect", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, utils.NewAppError("mongo.ping", "failed to ping primary", err)
	}

	return &MongoStore{client: client, database: client.Database(database), timeout: timeout}, nil
}

func (s *MongoStore) Load(ctx context.Context, path string, out any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc bson.M
	err = s.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return utils.NewAppError("mongo.load", path, err)
	}
	delete(doc, "_id")
	return fromBSON(doc, out)
}

func (s *MongoStore) Save(ctx context.Context, path string, value any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	doc, err := toBSON(value)
	if err != nil {
		return utils.NewAppError("mongo.save", path, err)
	}
	doc["_id"] = id

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.database.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return utils.NewAppError("mongo.save", path, err)
	}
	return nil
}

func (s *MongoStore) Patch(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	set, err := toBSON(fields)
	if err != nil {
		return utils.NewAppError("mongo.patch", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.database.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return utils.NewAppError("mongo.patch", path, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Append(ctx context.Context, collection string, record any) error {
	doc, err := toBSON(record)
	if err != nil {
		return utils.NewAppError("mongo.append", collection, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.database.Collection(collection).InsertOne(ctx, doc); err != nil {
		return utils.NewAppError("mongo.append", collection, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, prefix string) ([]string, error) {
	collection, idPrefix, err := splitPrefix(prefix)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{}
	if idPrefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(idPrefix)}
	}
	cursor, err := s.database.Collection(collection).Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, utils.NewAppError("mongo.list", prefix, err)
	}
	defer cursor.Close(ctx)

	var keys []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, utils.NewAppError("mongo.list", prefix, err)
		}
		keys = append(keys, Path(collection, row.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError("mongo.list", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toBSON converts a JSON-tagged value to a BSON document through relaxed
// extended JSON, so the stored shape matches the JSON wire shape.
func toBSON(value any) (bson.M, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert to bson: %w", err)
	}
	return doc, nil
}

func fromBSON(doc bson.M, out any) error {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return fmt.Errorf("convert from bson: %w", err)
	}
	return json.Unmarshal(data, out)
}

// splitPrefix splits a list prefix such as "intel_profiles/" or
// "intel_profiles/u" into its collection and id prefix.
func splitPrefix(prefix string) (string, string, error) {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == '/' {
			if i == 0 {
				break
			}
			return prefix[:i], prefix[i+1:], nil
		}
	}
	if prefix == "" {
		return "", "", fmt.Errorf("list prefix must name a collection")
	}
	return prefix, "", nil
}
