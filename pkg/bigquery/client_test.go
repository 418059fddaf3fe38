package bigquery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	tables := configuredTables(config.BigQueryConfig{OrderEventsTable: " order_events "})
	if len(tables) != 1 || tables[0] != "order_events" {
		t.Fatalf("unexpected tables %v", tables)
	}
	if tables := configuredTables(config.BigQueryConfig{}); len(tables) != 0 {
		t.Fatalf("expected no tables, got %v", tables)
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "order_events", []any{1}); err != errClientNotInitialized {
		t.Fatalf("expected not initialized error, got %v", err)
	}
	if c.OrderEventsTable() != "" {
		t.Fatal("expected empty table name from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cases := map[string]struct {
		gcp  config.GCPConfig
		want int
	}{
		"inline json wins": {config.GCPConfig{CredentialsJSON: `{"dummy": "value"}`, ApplicationCredentials: "/tmp/creds"}, 1},
		"file":             {config.GCPConfig{ApplicationCredentials: "/tmp/creds"}, 1},
		"blank json":       {config.GCPConfig{CredentialsJSON: "  "}, 0},
		"adc":              {config.GCPConfig{}, 0},
	}
	for name, tc := range cases {
		if got := len(clientOptions(tc.gcp)); got != tc.want {
			t.Errorf("%s: got %d options, want %d", name, got, tc.want)
		}
	}
}

func TestDescribeMetadataErr(t *testing.T) {
	notFound := describeMetadataErr("table", "order_events", &googleapi.Error{Code: http.StatusNotFound})
	if notFound.Error() != `table "order_events" does not exist` {
		t.Fatalf("unexpected message %q", notFound)
	}
	forbidden := &googleapi.Error{Code: http.StatusForbidden}
	if err := describeMetadataErr("dataset", "farmersbracket", forbidden); !errors.Is(err, forbidden) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "d", OrderEventsTable: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{OrderEventsTable: "t"}, nil); err != errDatasetRequired {
		t.Fatalf("expected dataset error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d"}, nil); err != errTableNameRequired {
		t.Fatalf("expected table error, got %v", err)
	}
}
