package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client is bound to one dataset. Every table the analytics worker writes to
// must exist before the worker starts.
type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	cfg     config.BigQueryConfig
	tables  []string

	mu        sync.Mutex
	inserters map[string]*bigquery.Inserter
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	tables := configuredTables(cfg)
	switch {
	case project == "":
		return nil, errProjectIDRequired
	case dataset == "":
		return nil, errDatasetRequired
	case len(tables) == 0:
		return nil, errTableNameRequired
	}

	raw, err := bigquery.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: raw, dataset: raw.Dataset(dataset), cfg: cfg, tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dataset": dataset,
			"tables":  tables,
		}), "bigquery client initialized")
	}
	return c, nil
}

// clientOptions prefers inline credentials over a credentials file. With
// neither set the client falls back to application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	var tables []string
	for _, name := range []string{cfg.OrderEventsTable} {
		if name = strings.TrimSpace(name); name != "" {
			tables = append(tables, name)
		}
	}
	return tables
}

func (c *Client) OrderEventsTable() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.cfg.OrderEventsTable)
}

// Ping checks that the dataset and every configured table are readable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeMetadataErr("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describeMetadataErr("table", name, err)
		}
	}
	return nil
}

func describeMetadataErr(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table. Rows must be structs or ValueSavers.
// Row-level rejections come back as a wrapped bigquery.PutMultiError.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.inserter(table).Put(ctx, rows)
	var rejected bigquery.PutMultiError
	if errors.As(err, &rejected) {
		return fmt.Errorf("%d of %d rows rejected by %s: %w", len(rejected), len(rows), table, err)
	}
	return err
}

func (c *Client) inserter(table string) *bigquery.Inserter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ins, ok := c.inserters[table]; ok {
		return ins
	}
	if c.inserters == nil {
		c.inserters = make(map[string]*bigquery.Inserter)
	}
	ins := c.dataset.Table(table).Inserter()
	c.inserters[table] = ins
	return ins
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
