package docstore

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tokengate/pkg/logger"
)

// Connect creates a mongo client for the configured deployment.
// Connection attempts are retried because managed mongo clusters routinely
// flap during maintenance windows.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	for range max(cfg.RetryAttempts, 1) {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime).
				SetRetryWrites(cfg.RetryWrites).
				SetRetryReads(cfg.RetryReads),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client, nil
			}
		}

		time.Sleep(cfg.RetryInterval)
	}

	return nil, ErrFailedToConnect
}

// MongoChannel implements Channel on top of mongo change streams.
//
// Every change event triggers a full re-query of the watched query or
// document, so each delivery is a complete, authoritative state rather than
// a delta. Change streams require a replica set deployment; CreateBatch
// additionally relies on multi-document transactions.
type MongoChannel struct {
	db  *mongo.Database
	log *slog.Logger
}

// MongoOption configures a MongoChannel.
type MongoOption func(*MongoChannel)

// WithMongoLogger sets the logger used for stream lifecycle events.
func WithMongoLogger(log *slog.Logger) MongoOption {
	return func(m *MongoChannel) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMongoChannel wraps a connected database as a document channel.
func NewMongoChannel(db *mongo.Database, opts ...MongoOption) *MongoChannel {
	m := &MongoChannel{
		db:  db,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMongoChannelFromConfig connects and wraps in one step.
func NewMongoChannelFromConfig(ctx context.Context, cfg Config, opts ...MongoOption) (*MongoChannel, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewMongoChannel(client.Database(cfg.Database), opts...), nil
}

func (m *MongoChannel) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if collection == "" {
		return "", ErrEmptyCollection
	}

	id := uuid.New().String()
	doc := bson.M{"_id": id}
	for k, v := range data {
		doc[k] = v
	}

	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (m *MongoChannel) CreateBatch(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return ErrEmptyBatch
	}
	for _, w := range writes {
		if w.Collection == "" {
			return ErrEmptyCollection
		}
	}

	session, err := m.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		for _, w := range writes {
			id := w.ID
			if id == "" {
				id = uuid.New().String()
			}
			doc := bson.M{"_id": id}
			for k, v := range w.Data {
				doc[k] = v
			}
			if _, err := m.db.Collection(w.Collection).InsertOne(ctx, doc); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (m *MongoChannel) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	if q.Collection == "" {
		return nil, ErrEmptyCollection
	}

	coll := m.db.Collection(q.Collection)

	// The stream outlives the subscribing request; only CancelFunc ends it.
	streamCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	stream, err := coll.Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		stop()
		return nil, err
	}

	var canceled atomic.Bool
	emit := func(snap Snapshot) {
		if !canceled.Load() {
			fn(snap)
		}
	}

	go func() {
		defer func() {
			if err := stream.Close(context.WithoutCancel(streamCtx)); err != nil {
				m.log.Debug("change stream close failed",
					logger.Collection(q.Collection), logger.Error(err))
			}
		}()

		emit(m.querySnapshot(streamCtx, q))

		for stream.Next(streamCtx) {
			emit(m.querySnapshot(streamCtx, q))
		}

		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			emit(Snapshot{Err: err})
		}
	}()

	return func() {
		canceled.Store(true)
		stop()
	}, nil
}

func (m *MongoChannel) SubscribeDocument(ctx context.Context, collection, id string, fn DocumentFunc) (CancelFunc, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}

	coll := m.db.Collection(collection)
	streamCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	stream, err := coll.Watch(streamCtx, pipeline)
	if err != nil {
		stop()
		return nil, err
	}

	var canceled atomic.Bool
	emit := func(ctx context.Context) {
		if canceled.Load() {
			return
		}
		var raw bson.M
		err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
		if err != nil {
			if err != mongo.ErrNoDocuments {
				m.log.Warn("document re-fetch failed",
					logger.Collection(collection), logger.Error(err))
			}
			return
		}
		if !canceled.Load() {
			fn(toDocument(raw))
		}
	}

	go func() {
		defer func() {
			_ = stream.Close(context.WithoutCancel(streamCtx))
		}()

		// Level-triggered: deliver the state that exists at subscribe time.
		emit(streamCtx)

		for stream.Next(streamCtx) {
			emit(streamCtx)
		}
	}()

	return func() {
		canceled.Store(true)
		stop()
	}, nil
}

func (m *MongoChannel) querySnapshot(ctx context.Context, q Query) Snapshot {
	filter := bson.M{}
	for _, f := range q.Filters {
		filter[f.Field] = f.Equals
	}

	cursor, err := m.db.Collection(q.Collection).Find(ctx, filter)
	if err != nil {
		return Snapshot{Err: err}
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return Snapshot{Err: err}
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return Snapshot{Err: err}
	}
	return Snapshot{Docs: docs}
}

// Healthcheck returns a probe suitable for readiness endpoints.
func Healthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}

func toDocument(raw bson.M) Document {
	doc := Document{Data: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			doc.ID = idToString(v)
			continue
		}
		doc.Data[k] = normalizeValue(v)
	}
	return doc
}

func idToString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case bson.ObjectID:
		return id.Hex()
	default:
		return ""
	}
}

// normalizeValue rewrites driver types into plain Go values so the rest of
// the module never sees bson.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, nested := range val {
			out[k] = normalizeValue(nested)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.DateTime:
		return val.Time().UTC()
	case bson.ObjectID:
		return val.Hex()
	default:
		return v
	}
}
