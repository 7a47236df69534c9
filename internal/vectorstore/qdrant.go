// Package vectorstore is the Qdrant gateway. Each project owns one
// collection, created lazily with cosine distance.
package vectorstore

import (
	"context"
	"sort"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

const collectionPrefix = "project_"

// HandleForProject returns the collection name for a project.
func HandleForProject(projectID string) string {
	return collectionPrefix + projectID
}

type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

// New dials the Qdrant gRPC endpoint. The connection is lazy; failures
// surface on the first call.
func New(cfg config.QdrantConfig) (*QdrantStore, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if cfg.APIKey != "" {
		key := cfg.APIKey
		opts = append(opts, grpc.WithUnaryInterceptor(
			func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
				ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
				return invoker(ctx, method, req, reply, cc, callOpts...)
			}))
	}

	conn, err := grpc.NewClient(cfg.Addr(), opts...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}
	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

func (s *QdrantStore) Close() error { return s.conn.Close() }

// CreateCollection ensures the project collection exists and returns its
// handle. An existing collection with a different vector size means the
// index no longer matches the configured embedding model.
func (s *QdrantStore) CreateCollection(ctx context.Context, projectID string, dim int) (string, error) {
	handle := HandleForProject(projectID)

	info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: handle})
	if err == nil && info.Result != nil {
		if size := collectionVectorSize(info.Result); size != 0 && size != uint64(dim) {
			return "", domain.WrapErrorf(domain.ErrVectorStoreCorrupt,
				"collection %s has vector size %d, expected %d", handle, size, dim)
		}
		return handle, nil
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: handle,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		// Concurrent creators race here; the collection existing is fine.
		if info, getErr := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: handle}); getErr == nil && info.Result != nil {
			return handle, nil
		}
		return "", domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}
	log.Info("created vector collection", "collection", handle, "dimension", dim)
	return handle, nil
}

func collectionVectorSize(info *pb.CollectionInfo) uint64 {
	if info.Config == nil || info.Config.Params == nil {
		return 0
	}
	vc := info.Config.Params.GetVectorsConfig()
	if vc == nil {
		return 0
	}
	params := vc.GetParams()
	if params == nil {
		return 0
	}
	return params.Size
}

func (s *QdrantStore) Upsert(ctx context.Context, handle string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	wait := true
	pbPoints := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		pbPoints = append(pbPoints, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: payloadToValues(p.Payload),
		})
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: handle,
		Points:         pbPoints,
		Wait:           &wait,
	})
	if err != nil {
		return domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

// Search returns up to k hits scoring at or above threshold, sorted by
// descending score with ties broken on lower chunk index, then lower id.
func (s *QdrantStore) Search(ctx context.Context, handle string, vector []float32, k int, threshold float64) ([]domain.ScoredPoint, error) {
	scoreThreshold := float32(threshold)
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: handle,
		Vector:         vector,
		Limit:          uint64(k),
		ScoreThreshold: &scoreThreshold,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}

	hits := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, point := range resp.Result {
		hits = append(hits, domain.ScoredPoint{
			ID:      point.Id.GetUuid(),
			Score:   float64(point.Score),
			Payload: payloadFromValues(point.Payload),
		})
	}
	sortHits(hits)
	return hits, nil
}

// sortHits imposes a deterministic order on equal scores.
func sortHits(hits []domain.ScoredPoint) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Payload.ChunkIndex != hits[j].Payload.ChunkIndex {
			return hits[i].Payload.ChunkIndex < hits[j].Payload.ChunkIndex
		}
		return hits[i].ID < hits[j].ID
	})
}

// DeleteByDocument removes every point carrying the document id. Deleting an
// absent document is a no-op on the Qdrant side.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, handle, documentID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: handle,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{{
						ConditionOneOf: &pb.Condition_Field{
							Field: &pb.FieldCondition{
								Key: "document_id",
								Match: &pb.Match{
									MatchValue: &pb.Match_Keyword{Keyword: documentID},
								},
							},
						},
					}},
				},
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, handle string) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: handle})
	if err != nil {
		return domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}
	return nil
}

func (s *QdrantStore) Stats(ctx context.Context, handle string) (*domain.CollectionStats, error) {
	info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: handle})
	if err != nil {
		return nil, domain.WrapError(domain.ErrVectorStoreUnavailable, err)
	}
	result := info.GetResult()
	if result == nil {
		return nil, domain.WrapErrorf(domain.ErrVectorStoreUnavailable, "collection %s returned no info", handle)
	}

	stats := &domain.CollectionStats{Status: result.Status.String()}
	if result.PointsCount != nil {
		stats.PointsCount = *result.PointsCount
	}
	if result.IndexedVectorsCount != nil {
		stats.IndexedCount = *result.IndexedVectorsCount
	}
	return stats, nil
}

func payloadToValues(p domain.ChunkPayload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"document_id": stringValue(p.DocumentID),
		"project_id":  stringValue(p.ProjectID),
		"content":     stringValue(p.Content),
		"chunk_index": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		"metadata": {Kind: &pb.Value_StructValue{StructValue: &pb.Struct{
			Fields: map[string]*pb.Value{
				"filename":      stringValue(p.Metadata.FileName),
				"original_name": stringValue(p.Metadata.OriginalName),
				"mime_type":     stringValue(p.Metadata.MimeType),
				"chunk_size":    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Metadata.ChunkSize)}},
				"total_chunks":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Metadata.TotalChunks)}},
				"created_at":    stringValue(p.Metadata.CreatedAt.UTC().Format(time.RFC3339)),
			},
		}}},
	}
}

func payloadFromValues(values map[string]*pb.Value) domain.ChunkPayload {
	p := domain.ChunkPayload{
		DocumentID: values["document_id"].GetStringValue(),
		ProjectID:  values["project_id"].GetStringValue(),
		Content:    values["content"].GetStringValue(),
		ChunkIndex: int(values["chunk_index"].GetIntegerValue()),
	}
	if meta := values["metadata"].GetStructValue(); meta != nil {
		fields := meta.Fields
		p.Metadata = domain.ChunkMetadata{
			FileName:     fields["filename"].GetStringValue(),
			OriginalName: fields["original_name"].GetStringValue(),
			MimeType:     fields["mime_type"].GetStringValue(),
			ChunkSize:    int(fields["chunk_size"].GetIntegerValue()),
			TotalChunks:  int(fields["total_chunks"].GetIntegerValue()),
		}
		if ts, err := time.Parse(time.RFC3339, fields["created_at"].GetStringValue()); err == nil {
			p.Metadata.CreatedAt = ts
		}
	}
	return p
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
