package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

const (
	namespaceAttribute = "namespace"
	idSeparator        = "::"
)

// ChromaConfig holds connection settings for a Chroma deployment.
type ChromaConfig struct {
	BaseURL  string
	APIKey   string
	Tenant   string
	Database string
}

// ChromaClient maps the index boundary onto Chroma. An index is a collection
// created with cosine HNSW space; a namespace is a metadata attribute on every
// record and a prefix on its document id, so ids stay unique across namespaces.
type ChromaClient struct {
	client chromago.Client

	mu          sync.Mutex
	collections map[string]chromago.Collection
}

// NewChromaClient connects to Chroma using the v2 API.
func NewChromaClient(cfg ChromaConfig) (*ChromaClient, error) {
	opts := []chromago.ClientOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, chromago.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Tenant != "" && cfg.Database != "" {
		opts = append(opts, chromago.WithDatabaseAndTenant(cfg.Database, cfg.Tenant))
	}
	if cfg.APIKey != "" {
		opts = append(opts, chromago.WithDefaultHeaders(map[string]string{"X-Chroma-Token": cfg.APIKey}))
	}

	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	return &ChromaClient{
		client:      client,
		collections: make(map[string]chromago.Collection),
	}, nil
}

func (c *ChromaClient) CreateIndex(ctx context.Context, spec IndexSpec) error {
	collection, err := c.client.GetOrCreateCollection(
		ctx,
		spec.Name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", spec.Metric),
				chromago.NewIntAttribute("dimension", int64(spec.Dimension)),
				chromago.NewStringAttribute("created_by", "semsearch"),
			),
		),
		chromago.WithEmbeddingFunctionCreate(precomputedEmbeddings{}),
	)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", spec.Name, err)
	}

	c.mu.Lock()
	c.collections[spec.Name] = collection
	c.mu.Unlock()
	return nil
}

// DescribeIndex reports ready once the server answers a heartbeat and the
// collection is listed.
func (c *ChromaClient) DescribeIndex(ctx context.Context, name string) (*IndexStatus, error) {
	collection, err := c.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	status := &IndexStatus{Name: name, Metric: MetricCosine}
	meta := collectionMetadata(collection)
	if metric, ok := meta["hnsw:space"].(string); ok {
		status.Metric = metric
	}
	if dim, ok := meta["dimension"].(float64); ok {
		status.Dimension = int(dim)
	}

	if err := c.client.Heartbeat(ctx); err != nil {
		return status, fmt.Errorf("chroma heartbeat failed: %w", err)
	}
	status.Ready = true
	return status, nil
}

func (c *ChromaClient) Upsert(ctx context.Context, index, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	collection, err := c.lookup(ctx, index)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, 0, len(vectors))
	embs := make([]embeddings.Embedding, 0, len(vectors))
	metas := make([]chromago.DocumentMetadata, 0, len(vectors))
	for _, v := range vectors {
		ids = append(ids, chromago.DocumentID(documentID(namespace, v.ID)))
		embs = append(embs, embeddings.NewEmbeddingFromFloat32(v.Values))
		metas = append(metas, chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(namespaceAttribute, namespace),
			chromago.NewStringAttribute("record_id", v.ID),
		))
	}

	err = collection.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %d vectors to chromadb: %w", len(vectors), err)
	}
	return nil
}

// Query returns ids and scores only; stored values are never included.
func (c *ChromaClient) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	collection, err := c.lookup(ctx, req.Index)
	if err != nil {
		return nil, err
	}

	results, err := collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(req.Vector)),
		chromago.WithNResults(req.TopK),
		chromago.WithWhereQuery(chromago.EqString(namespaceAttribute, req.Namespace)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Chroma reports cosine distance.
			score = 1 - float64(distanceGroups[0][i])
		}
		matches = append(matches, Match{
			ID:    strings.TrimPrefix(string(id), req.Namespace+idSeparator),
			Score: score,
		})
	}
	return rankMatches(matches, req.TopK), nil
}

func (c *ChromaClient) Delete(ctx context.Context, req DeleteRequest) error {
	collection, err := c.lookup(ctx, req.Index)
	if err != nil {
		return err
	}

	if req.DeleteAll {
		where := chromago.EqString(namespaceAttribute, req.Namespace)
		return collection.Delete(ctx, chromago.WithWhereDelete(where))
	}

	ids := make([]chromago.DocumentID, 0, len(req.IDs))
	for _, id := range req.IDs {
		ids = append(ids, chromago.DocumentID(documentID(req.Namespace, id)))
	}
	return collection.Delete(ctx, chromago.WithIDsDelete(ids...))
}

// Close releases the client, including any local embedding functions it holds.
func (c *ChromaClient) Close() error {
	return c.client.Close()
}

func (c *ChromaClient) lookup(ctx context.Context, name string) (chromago.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if collection, ok := c.collections[name]; ok {
		return collection, nil
	}

	collections, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chroma collections: %w", err)
	}
	for _, collection := range collections {
		if collection.Name() == name {
			c.collections[name] = collection
			return collection, nil
		}
	}
	return nil, ErrIndexNotFound
}

// precomputedEmbeddings stands in for Chroma's embedding function. Vectors are
// always computed before they reach the index, and without it the client
// loads its bundled local model on collection create.
type precomputedEmbeddings struct{}

var errPrecomputedOnly = errors.New("chroma collections accept precomputed embeddings only")

func (precomputedEmbeddings) EmbedDocuments(context.Context, []string) ([]embeddings.Embedding, error) {
	return nil, errPrecomputedOnly
}

func (precomputedEmbeddings) EmbedQuery(context.Context, string) (embeddings.Embedding, error) {
	return nil, errPrecomputedOnly
}

func documentID(namespace, id string) string {
	return namespace + idSeparator + id
}

// collectionMetadata converts Chroma metadata into a plain map. The metadata
// type has no public accessor for all values, so it round-trips through JSON.
func collectionMetadata(collection chromago.Collection) map[string]interface{} {
	metaMap := make(map[string]interface{})
	jsonBytes, err := json.Marshal(collection.Metadata())
	if err != nil {
		return metaMap
	}
	if err := json.Unmarshal(jsonBytes, &metaMap); err != nil {
		return make(map[string]interface{})
	}
	return metaMap
}
