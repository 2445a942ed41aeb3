package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/TaffyWrinkle/TeamCloud/internal/domain"
)

// cosmosPartitionKeyPath is the partition key path of every container.
// Documents carry the tenant name under this property.
const cosmosPartitionKeyPath = "/tenant"

// CosmosConfig configures the Cosmos DB store.
type CosmosConfig struct {
	Endpoint string
	Key      string // static account key; use the credential constructor instead for AAD
	Database string
	PageSize int
}

// CosmosStore implements Store on Azure Cosmos DB. The store contract maps
// directly: partition-key point operations, 404/409 response codes for the
// not-found/conflict outcomes, parameterized SQL queries, continuation-token
// paging, and server-side unique-key policies.
type CosmosStore struct {
	client   *azcosmos.Client
	database string
	pageSize int32
	logger   *slog.Logger
}

// NewCosmosStore connects with a static account key.
func NewCosmosStore(cfg CosmosConfig, logger *slog.Logger) (*CosmosStore, error) {
	credential, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("cosmos key credential: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}
	return newCosmosStore(client, cfg, logger), nil
}

// NewCosmosStoreWithCredential connects with an azcore token credential
// (managed identity, service principal). Token acquisition happens outside
// this package.
func NewCosmosStoreWithCredential(cfg CosmosConfig, credential azcore.TokenCredential, logger *slog.Logger) (*CosmosStore, error) {
	client, err := azcosmos.NewClient(cfg.Endpoint, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}
	return newCosmosStore(client, cfg, logger), nil
}

func newCosmosStore(client *azcosmos.Client, cfg CosmosConfig, logger *slog.Logger) *CosmosStore {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CosmosStore{
		client:   client,
		database: cfg.Database,
		pageSize: int32(cfg.PageSize),
		logger:   logger,
	}
}

// EnsureContainers creates the database and containers with their partition
// key and unique-key policies. Existing resources are left untouched.
func (s *CosmosStore) EnsureContainers(ctx context.Context) error {
	if _, err := s.client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: s.database}, nil); err != nil && !isCosmosStatus(err, http.StatusConflict) {
		return fmt.Errorf("create database %s: %w", s.database, err)
	}
	database, err := s.client.NewDatabase(s.database)
	if err != nil {
		return fmt.Errorf("database client: %w", err)
	}
	for _, def := range containers {
		properties := azcosmos.ContainerProperties{
			ID: def.Name,
			PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
				Paths: []string{cosmosPartitionKeyPath},
			},
		}
		policy, err := cosmosUniqueKeyPolicy(def)
		if err != nil {
			return err
		}
		properties.UniqueKeyPolicy = policy
		if _, err := database.CreateContainer(ctx, properties, nil); err != nil && !isCosmosStatus(err, http.StatusConflict) {
			return fmt.Errorf("create container %s: %w", def.Name, err)
		}
		s.logger.Debug("cosmos container ready", "container", def.Name)
	}
	return nil
}

func cosmosUniqueKeyPolicy(def Container) (*azcosmos.UniqueKeyPolicy, error) {
	if len(def.UniqueKeys) == 0 {
		return nil, nil
	}
	policy := &azcosmos.UniqueKeyPolicy{}
	for _, path := range def.UniqueKeys {
		segments, err := splitPath(path)
		if err != nil {
			return nil, err
		}
		policy.UniqueKeys = append(policy.UniqueKeys, azcosmos.UniqueKey{
			Paths: []string{"/" + strings.Join(segments, "/")},
		})
	}
	return policy, nil
}

// Read returns the document with the given id.
func (s *CosmosStore) Read(ctx context.Context, container, partition, id string) ([]byte, error) {
	client, err := s.container(container)
	if err != nil {
		return nil, err
	}
	response, err := client.ReadItem(ctx, azcosmos.NewPartitionKeyString(partition), id, nil)
	if err != nil {
		if isCosmosStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read document %s/%s: %w", container, id, err)
	}
	return response.Value, nil
}

// Create inserts a new document.
func (s *CosmosStore) Create(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	client, err := s.container(container)
	if err != nil {
		return nil, err
	}
	options := &azcosmos.ItemOptions{EnableContentResponseOnWrite: true}
	response, err := client.CreateItem(ctx, azcosmos.NewPartitionKeyString(partition), doc, options)
	if err != nil {
		if isCosmosStatus(err, http.StatusConflict) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create document %s/%s: %w", container, id, err)
	}
	return storedOrInput(response.Value, doc), nil
}

// Upsert inserts or replaces the document with the given id.
func (s *CosmosStore) Upsert(ctx context.Context, container, partition, id string, doc []byte) ([]byte, error) {
	client, err := s.container(container)
	if err != nil {
		return nil, err
	}
	options := &azcosmos.ItemOptions{EnableContentResponseOnWrite: true}
	response, err := client.UpsertItem(ctx, azcosmos.NewPartitionKeyString(partition), doc, options)
	if err != nil {
		if isCosmosStatus(err, http.StatusConflict) {
			return nil, fmt.Errorf("document %s/%s: %w", container, id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("upsert document %s/%s: %w", container, id, err)
	}
	return storedOrInput(response.Value, doc), nil
}

// Delete removes the document with the given id.
func (s *CosmosStore) Delete(ctx context.Context, container, partition, id string) error {
	client, err := s.container(container)
	if err != nil {
		return err
	}
	if _, err := client.DeleteItem(ctx, azcosmos.NewPartitionKeyString(partition), id, nil); err != nil {
		if isCosmosStatus(err, http.StatusNotFound) {
			return fmt.Errorf("document %s/%s: %w", container, id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete document %s/%s: %w", container, id, err)
	}
	return nil
}

// Query compiles the structured filter to Cosmos SQL with @-parameters and
// pages through the partition with the items pager.
func (s *CosmosStore) Query(container, partition string, query Query) Pager {
	client, err := s.container(container)
	if err != nil {
		return &errPager{err: err}
	}
	text, parameters, err := compileCosmosQuery(query)
	if err != nil {
		return &errPager{err: err}
	}
	pager := client.NewQueryItemsPager(text, azcosmos.NewPartitionKeyString(partition), &azcosmos.QueryOptions{
		QueryParameters: parameters,
		PageSizeHint:    s.pageSize,
	})
	return &cosmosPager{pager: pager}
}

// Close is a no-op: the Cosmos client holds no long-lived connection state.
func (s *CosmosStore) Close(_ context.Context) error {
	return nil
}

func (s *CosmosStore) container(name string) (*azcosmos.ContainerClient, error) {
	client, err := s.client.NewContainer(s.database, name)
	if err != nil {
		return nil, fmt.Errorf("container client %s: %w", name, err)
	}
	return client, nil
}

// compileCosmosQuery renders a structured query as Cosmos SQL. Document
// paths become bracket accessors on the item alias; every value binds an
// @-parameter.
func compileCosmosQuery(query Query) (string, []azcosmos.QueryParameter, error) {
	text := "SELECT * FROM c"
	var parameters []azcosmos.QueryParameter
	var clauses []string
	for _, clause := range query.Clauses {
		var terms []string
		for _, condition := range clause.Any {
			term, err := compileCosmosCondition(condition, &parameters)
			if err != nil {
				return "", nil, err
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			continue
		}
		clauses = append(clauses, "("+strings.Join(terms, " OR ")+")")
	}
	if len(clauses) > 0 {
		text += " WHERE " + strings.Join(clauses, " AND ")
	}
	return text, parameters, nil
}

func compileCosmosCondition(condition Condition, parameters *[]azcosmos.QueryParameter) (string, error) {
	segments, err := splitPath(condition.Path)
	if err != nil {
		return "", err
	}
	accessor := "c"
	for _, segment := range segments {
		accessor += fmt.Sprintf("[%q]", segment)
	}
	switch condition.Op {
	case OpEq:
		return fmt.Sprintf("%s = %s", accessor, bindCosmosParameter(parameters, condition.Value)), nil
	case OpIn:
		if len(condition.Values) == 0 {
			return "false", nil
		}
		names := make([]string, len(condition.Values))
		for i, value := range condition.Values {
			names[i] = bindCosmosParameter(parameters, value)
		}
		return fmt.Sprintf("%s IN (%s)", accessor, strings.Join(names, ", ")), nil
	case OpContains:
		name := bindCosmosParameter(parameters, condition.Value)
		if _, partial := condition.Value.(map[string]any); partial {
			return fmt.Sprintf("ARRAY_CONTAINS(%s, %s, true)", accessor, name), nil
		}
		return fmt.Sprintf("ARRAY_CONTAINS(%s, %s)", accessor, name), nil
	default:
		return "", fmt.Errorf("unsupported query operator %q", condition.Op)
	}
}

func bindCosmosParameter(parameters *[]azcosmos.QueryParameter, value any) string {
	name := fmt.Sprintf("@p%d", len(*parameters))
	*parameters = append(*parameters, azcosmos.QueryParameter{Name: name, Value: value})
	return name
}

type cosmosPager struct {
	pager *runtime.Pager[azcosmos.QueryItemsResponse]
}

func (p *cosmosPager) More() bool { return p.pager.More() }

func (p *cosmosPager) NextPage(ctx context.Context) ([][]byte, error) {
	response, err := p.pager.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	return response.Items, nil
}

// Close is a no-op: continuation paging holds no server-side cursor.
func (p *cosmosPager) Close() error {
	return nil
}

// storedOrInput prefers the server echo of a write, falling back to the
// submitted document when content responses are disabled server-side.
func storedOrInput(stored, input []byte) []byte {
	if len(stored) > 0 {
		return stored
	}
	return input
}

func isCosmosStatus(err error, status int) bool {
	var responseErr *azcore.ResponseError
	return errors.As(err, &responseErr) && responseErr.StatusCode == status
}
