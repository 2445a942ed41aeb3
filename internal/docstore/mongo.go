package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain"
)

// MongoConfig configures the MongoDB store.
type MongoConfig struct {
	URI      string
	Database string
	PageSize int
}

// MongoStore implements Store on MongoDB. Containers map to collections;
// each document travels in an envelope {_id, partition, doc} so the
// partition stays indexable next to the raw document. Unique keys become
// partial unique indexes over (partition, doc.<path>).
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	pageSize int
	logger   *slog.Logger
}

type mongoEnvelope struct {
	ID        string   `bson:"_id"`
	Partition string   `bson:"partition"`
	Doc       bson.Raw `bson:"doc"`
}

// NewMongoStore connects a Mongo client and returns the store.
func NewMongoStore(ctx context.Context, cfg MongoConfig, logger *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoStore{
		client:   client,
		database: client.Database(cfg.Database),
		pageSize: cfg.PageSize,
		logger:   logger,
	}, nil
}

// EnsureContainers creates the partial unique indexes backing container
// unique keys. Collections themselves appear implicitly on first write.
func (s *MongoStore) EnsureContainers(ctx context.Context) error {
	for _, def := range containers {
		collection := s.database.Collection(def.Name)
		for _, path := range def.UniqueKeys {
			segments, err := splitPath(path)
			if err != nil {
				return err
			}
			field := "doc." + strings.Join(segments, ".")
			_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
				Keys: bson.D{{Key: "partition", Value: 1}, {Key: field, Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: true}}}}),
			})
			if err != nil {
				return fmt.Errorf("create unique index for %s.%s: %w", def.Name, path, err)
			}
		}
		s.logger.Debug("mongo collection ready", "collection", def.Name)
	}
	return nil
}

// Read returns the document with the given id.
func (s *MongoStore) Read(ctx context.Context, container, partition, id string) ([]byte, error) {
	var envelope mongoEnvelope
	err := s.database.Collection(container).FindOne(ctx, mongoPointFilter(partition, id)).Decode(&envelope)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read document %s/%s: %w", container, id, err)
	}
	return mongoJSON(envelope.Doc)
}

// Create inserts a new document.
func (s *MongoStore) Create(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	decoded, err := mongoDocument(doc)
	if err != nil {
		return nil, err
	}
	_, err = s.database.Collection(container).InsertOne(ctx, bson.D{
		{Key: "_id", Value: id},
		{Key: "partition", Value: partition},
		{Key: "doc", Value: decoded},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create document %s/%s: %w", container, id, err)
	}
	return doc, nil
}

// Upsert inserts or replaces the document with the given id. A unique-key
// collision with another document still surfaces as a conflict.
func (s *MongoStore) Upsert(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	decoded, err := mongoDocument(doc)
	if err != nil {
		return nil, err
	}
	replacement := bson.D{
		{Key: "_id", Value: id},
		{Key: "partition", Value: partition},
		{Key: "doc", Value: decoded},
	}
	_, err = s.database.Collection(container).ReplaceOne(ctx, mongoPointFilter(partition, id), replacement, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("upsert document %s/%s: %w", container, id, err)
	}
	return doc, nil
}

// Delete removes the document with the given id.
func (s *MongoStore) Delete(ctx context.Context, container, partition, id string) error {
	result, err := s.database.Collection(container).DeleteOne(ctx, mongoPointFilter(partition, id))
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", container, id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
	}
	return nil
}

// Query compiles the structured filter to a Mongo filter document and pages
// the cursor. Results come back in id order.
func (s *MongoStore) Query(container, partition string, query Query) Pager {
	filter, err := compileMongoFilter(partition, query)
	if err != nil {
		return &errPager{err: err}
	}
	return &mongoPager{
		collection: s.database.Collection(container),
		filter:     filter,
		pageSize:   s.pageSize,
	}
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func mongoPointFilter(partition, id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "partition", Value: partition}}
}

// mongoDocument decodes raw JSON into a BSON document for storage.
func mongoDocument(doc []byte) (bson.D, error) {
	var decoded bson.D
	if err := bson.UnmarshalExtJSON(doc, false, &decoded); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return decoded, nil
}

// mongoJSON re-encodes a stored BSON document as relaxed JSON.
func mongoJSON(raw bson.Raw) ([]byte, error) {
	doc, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// compileMongoFilter renders the structured query as a filter document.
// Conditions address fields under the doc envelope; values stay native BSON
// values throughout, never query text.
func compileMongoFilter(partition string, query Query) (bson.D, error) {
	filter := bson.D{{Key: "partition", Value: partition}}
	var and []bson.D
	for _, clause := range query.Clauses {
		var terms []bson.D
		for _, condition := range clause.Any {
			term, err := compileMongoCondition(condition)
			if err != nil {
				return nil, err
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			continue
		}
		if len(terms) == 1 {
			and = append(and, terms[0])
		} else {
			and = append(and, bson.D{{Key: "$or", Value: terms}})
		}
	}
	if len(and) > 0 {
		filter = append(filter, bson.E{Key: "$and", Value: and})
	}
	return filter, nil
}

func compileMongoCondition(condition Condition) (bson.D, error) {
	segments, err := splitPath(condition.Path)
	if err != nil {
		return nil, err
	}
	field := "doc." + strings.Join(segments, ".")
	switch condition.Op {
	case OpEq:
		return bson.D{{Key: field, Value: condition.Value}}, nil
	case OpIn:
		// A non-nil empty $in list matches nothing, which is the defined
		// behavior for empty value sets.
		values := make([]any, len(condition.Values))
		for i, value := range condition.Values {
			values[i] = value
		}
		return bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: values}}}}, nil
	case OpContains:
		if fields, partial := condition.Value.(map[string]any); partial {
			return bson.D{{Key: field, Value: bson.D{{Key: "$elemMatch", Value: mongoMatchDocument(fields)}}}}, nil
		}
		// Matching an array field against a scalar is membership in Mongo.
		return bson.D{{Key: field, Value: condition.Value}}, nil
	default:
		return nil, fmt.Errorf("unsupported query operator %q", condition.Op)
	}
}

// mongoMatchDocument renders a partial-match map as a BSON document with
// deterministic field order.
func mongoMatchDocument(fields map[string]any) bson.D {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	match := make(bson.D, 0, len(fields))
	for _, name := range names {
		match = append(match, bson.E{Key: name, Value: fields[name]})
	}
	return match
}

// mongoPager pages a Find cursor. The cursor stays open between pages;
// Close releases it when a consumer stops early.
type mongoPager struct {
	collection *mongo.Collection
	filter     bson.D
	pageSize   int
	cursor     *mongo.Cursor
	started    bool
	done       bool
}

func (p *mongoPager) More() bool { return !p.done }

func (p *mongoPager) NextPage(ctx context.Context) ([][]byte, error) {
	if p.done {
		return nil, nil
	}
	if !p.started {
		opts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetBatchSize(int32(p.pageSize))
		cursor, err := p.collection.Find(ctx, p.filter, opts)
		if err != nil {
			p.done = true
			return nil, fmt.Errorf("query documents: %w", err)
		}
		p.cursor = cursor
		p.started = true
	}

	page := make([][]byte, 0, p.pageSize)
	for len(page) < p.pageSize && p.cursor.Next(ctx) {
		var envelope mongoEnvelope
		if err := bson.Unmarshal(p.cursor.Current, &envelope); err != nil {
			p.release(ctx)
			return nil, fmt.Errorf("decode document: %w", err)
		}
		doc, err := mongoJSON(envelope.Doc)
		if err != nil {
			p.release(ctx)
			return nil, err
		}
		page = append(page, doc)
	}
	if len(page) < p.pageSize {
		err := p.cursor.Err()
		p.release(ctx)
		if err != nil {
			return nil, fmt.Errorf("iterate documents: %w", err)
		}
	}
	return page, nil
}

func (p *mongoPager) Close() error {
	if p.cursor != nil && !p.done {
		p.done = true
		return p.cursor.Close(context.Background())
	}
	p.done = true
	return nil
}

func (p *mongoPager) release(ctx context.Context) {
	if p.cursor != nil {
		_ = p.cursor.Close(ctx)
	}
	p.done = true
}
