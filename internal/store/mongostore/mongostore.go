package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MaintBackOffice/internal/store"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Store is the MongoDB backend. Case-insensitive lookups run with a strength 2
// collation so a collation-backed index on the business key can serve them.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(timeoutCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(timeoutCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	zap.L().Info("connected to MongoDB", zap.String("database", dbName))
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) collection(name string) (*mongo.Collection, error) {
	if !store.ValidCollection(name) {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidCollection, name)
	}
	return s.db.Collection(name), nil
}

func (s *Store) Find(ctx context.Context, collection string, filter store.Filter) ([]store.Document, error) {
	if filter.Empty() {
		return nil, nil
	}
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if filter.CaseInsensitive {
		opts.SetCollation(caseInsensitive)
	}
	cursor, err := coll.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	docs := make([]store.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, toDocument(m))
	}
	return docs, nil
}

func (s *Store) BulkWrite(ctx context.Context, collection string, ops []store.WriteOp) (*store.BulkResult, error) {
	out := &store.BulkResult{}
	if len(ops) == 0 {
		return out, nil
	}
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case store.OpUpdate:
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": op.ID}).
				SetUpdate(bson.M{"$set": bson.M(op.Fields)}))
		default:
			models = append(models, mongo.NewInsertOneModel().SetDocument(bson.M(op.Fields)))
		}
	}

	res, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if res != nil {
		out.InsertedCount = res.InsertedCount
		out.MatchedCount = res.MatchedCount
		out.ModifiedCount = res.ModifiedCount
	}
	if err == nil {
		return out, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		return nil, fmt.Errorf("bulk write %s: %w", collection, err)
	}
	for _, we := range bwe.WriteErrors {
		out.WriteErrors = append(out.WriteErrors, store.WriteError{
			Index:   we.Index,
			Code:    strconv.Itoa(we.Code),
			Message: we.Message,
		})
	}
	if bwe.WriteConcernError != nil {
		zap.L().Warn("bulk write concern error",
			zap.String("collection", collection),
			zap.String("message", bwe.WriteConcernError.Message))
	}
	return out, nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, fields map[string]any) error {
	coll, err := s.collection(collection)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, bson.M(fields)); err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter store.Filter) (int64, error) {
	if filter.Empty() {
		return 0, nil
	}
	coll, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	opts := options.Delete()
	if filter.CaseInsensitive {
		opts.SetCollation(caseInsensitive)
	}
	res, err := coll.DeleteMany(ctx, buildFilter(filter), opts)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", collection, err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

func buildFilter(f store.Filter) bson.M {
	var clauses []bson.M
	if len(f.AnyOf) > 0 {
		or := make(bson.A, 0, len(f.AnyOf))
		for _, m := range f.AnyOf {
			or = append(or, bson.M(m))
		}
		clauses = append(clauses, bson.M{"$or": or})
	}
	if f.OlderThan != nil {
		clauses = append(clauses, bson.M{f.OlderThan.Field: bson.M{"$lt": f.OlderThan.Before}})
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return bson.M{"$and": clauses}
}

func toDocument(m bson.M) store.Document {
	doc := store.Document{ID: m["_id"], Fields: make(map[string]any, len(m))}
	for k, v := range m {
		if k == "_id" {
			continue
		}
		doc.Fields[k] = plain(v)
	}
	return doc
}

// plain unwraps the bson types callers compare against. Decimal128 becomes a
// float64 so a stored 1234.50 equals an incoming 1234.5.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d.InexactFloat64()
		}
		return t.String()
	case primitive.ObjectID:
		return t.Hex()
	}
	return v
}
