package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Qdrant payload keys. Record text lives at the top level, everything else
// under a nested metadata object so filters address "metadata.<field>".
const (
	payloadTextKey     = "text"
	payloadMetadataKey = "metadata"
)

const insertBatchSize = 50

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the HTTP REST port.
	Port int

	// Distance is the similarity metric used for new collections.
	Distance qdrant.Distance

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxMessageSize is the maximum gRPC message size in bytes.
	MaxMessageSize int
}

func (c *QdrantConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Distance == 0 {
		c.Distance = qdrant.Distance_Cosine
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
// Collections are per project; record IDs are chunk primary keys.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantStore creates a QdrantStore and verifies connectivity.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.applyDefaults()

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &QdrantStore{client: client, config: config}, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// CreateCollection creates a collection for vectors of the given size.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, vectorSize int, reset bool) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}

	if reset {
		if _, err := s.DeleteCollection(ctx, name); err != nil {
			return false, err
		}
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: s.config.Distance,
		}),
	})
	if err != nil {
		return false, fmt.Errorf("creating collection %s: %w", name, err)
	}
	return true, nil
}

// CollectionExists reports whether the collection exists.
func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	return info != nil, nil
}

// CollectionInfo returns collection metadata.
func (s *QdrantStore) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("getting collection info for %s: %w", name, err)
	}

	out := &CollectionInfo{Name: name, Status: info.GetStatus().String()}
	if info.PointsCount != nil {
		out.PointsCount = int64(*info.PointsCount)
	}
	if info.VectorsCount != nil {
		out.VectorsCount = int64(*info.VectorsCount)
	}
	out.SegmentsCount = int64(info.GetSegmentsCount())
	if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
		out.VectorSize = int(params.Size)
	}
	return out, nil
}

// DeleteCollection drops the collection if it exists.
func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) (bool, error) {
	if err := ValidateCollectionName(name); err != nil {
		return false, err
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return false, fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return true, nil
}

// InsertMany upserts records in batches. Record IDs become point IDs so a
// re-push overwrites rather than duplicates.
func (s *QdrantStore) InsertMany(ctx context.Context, name string, records []Record) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := records[start:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for i, rec := range batch {
			points[i] = &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(rec.ID)),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: map[string]*qdrant.Value{
					payloadTextKey:     toQdrantValue(rec.Text),
					payloadMetadataKey: toQdrantValue(rec.Metadata),
				},
			}
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("%w: upserting batch at %d: %v", ErrInsertFailed, start, err)
		}
	}
	return nil
}

// SearchByVector returns up to limit nearest records, best first.
func (s *QdrantStore) SearchByVector(ctx context.Context, name string, vector []float32, limit int) ([]RetrievedDocument, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrSearchFailed, limit)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("%w: searching collection %s: %v", ErrSearchFailed, name, err)
	}

	docs := make([]RetrievedDocument, len(results))
	for i, point := range results {
		doc := RetrievedDocument{Score: point.Score}
		if v, ok := point.Payload[payloadTextKey]; ok {
			doc.Text = v.GetStringValue()
		}
		docs[i] = doc
	}
	return docs, nil
}

// DeleteByIDs removes points by their numeric IDs.
func (s *QdrantStore) DeleteByIDs(ctx context.Context, name string, ids []int64) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting %d points from %s: %w", len(ids), name, err)
	}
	return nil
}

// DeleteByFilter removes points matching the metadata filter and returns how
// many matched before deletion.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, name string, f Filter) (int64, error) {
	if err := ValidateCollectionName(name); err != nil {
		return 0, err
	}

	filter := buildMetadataFilter(f)
	if filter == nil {
		return 0, nil
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return 0, ErrCollectionNotFound
		}
		return 0, fmt.Errorf("counting points in %s: %w", name, err)
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("deleting filtered points from %s: %w", name, err)
	}
	return int64(count), nil
}

func buildMetadataFilter(f Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.AssetID != 0 {
		must = append(must, integerCondition(payloadMetadataKey+".asset_id", f.AssetID))
	}
	if f.ProjectID != 0 {
		must = append(must, integerCondition(payloadMetadataKey+".project_id", f.ProjectID))
	}
	if f.ChunkID != 0 {
		must = append(must, integerCondition(payloadMetadataKey+".chunk_id", f.ChunkID))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func integerCondition(key string, value int64) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Integer{Integer: value},
				},
			},
		},
	}
}

// toQdrantValue converts Go values to the qdrant payload representation.
func toQdrantValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{}}
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case map[string]interface{}:
		fields := make(map[string]*qdrant.Value, len(val))
		for k, v := range val {
			fields[k] = toQdrantValue(v)
		}
		return &qdrant.Value{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: fields}}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprint(val)}}
	}
}

// Ensure QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)
