package hooks

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/checkpoint-dev/checkpoint/internal/fileutil"
	"github.com/checkpoint-dev/checkpoint/internal/manifest"
	"github.com/stretchr/testify/require"
)

const fixture = `{
	"metadata": {"dbt_version": "1.7.4"},
	"nodes": {
		"model.shop.stg_orders": {
			"resource_type": "model",
			"original_file_path": "models/staging/stg_orders.sql",
			"patch_path": "shop://models/staging/schema.yml",
			"sources": [["raw", "orders"], ["raw", "order_items"]]
		},
		"model.shop.stg_customers": {
			"resource_type": "model",
			"original_file_path": "models/staging/stg_customers.sql",
			"patch_path": null,
			"sources": [["raw", "customers"], ["app", "users"]]
		},
		"model.shop.calendar": {
			"resource_type": "model",
			"original_file_path": "models/calendar.sql",
			"sources": []
		}
	}
}`

func graph(t *testing.T) *manifest.Graph {
	t.Helper()
	g, err := manifest.FromJSON([]byte(fixture), "/work/shop")
	require.NoError(t, err)
	return g
}

func TestCheckModelHasPropertiesReportsMissing(t *testing.T) {
	var out bytes.Buffer
	result := CheckModelHasProperties(context.Background(), graph(t), []string{
		"models/staging/stg_orders.sql",
		"models/staging/stg_customers.sql",
		"models/unknown.sql",
		"README.md",
	}, &out)

	require.Equal(t, StatusFailed, result.StatusCode)
	require.Equal(t, []string{"models/staging/stg_customers.sql"}, result.Offending)
	require.Equal(t, []string{"models/unknown.sql"}, result.Unmatched)
	require.Contains(t, out.String(), "models/staging/stg_customers.sql")
	require.Contains(t, out.String(), "does not have model properties defined in any .yml file.")
	require.NotContains(t, out.String(), "stg_orders")
}

func TestCheckModelHasPropertiesPasses(t *testing.T) {
	var out bytes.Buffer
	result := CheckModelHasProperties(context.Background(), graph(t), []string{
		"models/staging/stg_orders.sql",
		"models/staging/schema.yml",
	}, &out)

	require.Equal(t, StatusOK, result.StatusCode)
	require.Empty(t, result.Offending)
	require.Equal(t, 1, result.Models)
	require.Empty(t, out.String())
}

func TestModelPathsExpandsPropertiesFiles(t *testing.T) {
	paths := ModelPaths(graph(t), []string{
		"models/staging/schema.yml",
		"models/staging/stg_orders.sql",
		"macros/util.sql",
		"dbt_project.yml",
	})
	require.Equal(t, []string{"models/staging/stg_orders.sql", "macros/util.sql"}, paths)
}

func TestGenerateMissingCreatesSchemaFile(t *testing.T) {
	schemaFile := filepath.Join(t.TempDir(), "models", "sources.yml")
	var out bytes.Buffer

	result, err := GenerateMissing(context.Background(), graph(t), []string{
		"models/staging/stg_orders.sql",
		"models/staging/stg_customers.sql",
	}, GenerateOptions{SchemaFile: schemaFile, Out: &out})
	require.NoError(t, err)

	require.Equal(t, StatusOK, result.StatusCode)
	require.True(t, result.Created)
	require.True(t, result.Written)
	require.Equal(t, []string{"raw.orders", "raw.order_items", "raw.customers", "app.users"}, result.Added)
	require.Contains(t, out.String(), "Target schema file not found at `"+schemaFile+"`. Created it.")
	require.Contains(t, out.String(), "Adding schema source for `raw.orders`.")
	require.Contains(t, out.String(), "Generating missing source `raw.order_items`.")

	data, err := os.ReadFile(schemaFile)
	require.NoError(t, err)
	require.Equal(t, `sources:
  - name: raw
    tables:
      - name: orders
      - name: order_items
      - name: customers
  - name: app
    tables:
      - name: users
`, string(data))
}

func TestGenerateMissingSecondRunIsNoop(t *testing.T) {
	schemaFile := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(schemaFile, []byte(`version: 2

sources:
  - name: raw
    tables:
      - name: orders
      - name: order_items
`), 0644))
	before, err := os.ReadFile(schemaFile)
	require.NoError(t, err)

	var out bytes.Buffer
	result, err := GenerateMissing(context.Background(), graph(t), []string{"models/staging/stg_orders.sql"}, GenerateOptions{SchemaFile: schemaFile, Out: &out})
	require.NoError(t, err)
	require.False(t, result.Written)
	require.False(t, result.Created)
	require.Empty(t, result.Added)
	require.Empty(t, out.String())

	after, err := os.ReadFile(schemaFile)
	require.NoError(t, err)
	require.Equal(t, string(before), string(after), "no-op run must leave the file byte-identical")
}

func TestGenerateMissingWithoutReferencesDoesNotCreateFile(t *testing.T) {
	schemaFile := filepath.Join(t.TempDir(), "sources.yml")

	result, err := GenerateMissing(context.Background(), graph(t), []string{
		"models/calendar.sql",
		"analyses/unknown.sql",
	}, GenerateOptions{SchemaFile: schemaFile, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.StatusCode)
	require.Zero(t, result.Sources)
	require.Equal(t, []string{"analyses/unknown.sql"}, result.Unmatched)

	_, err = os.Stat(schemaFile)
	require.True(t, os.IsNotExist(err))
}

func TestGenerateMissingDryRunNeverWrites(t *testing.T) {
	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "sources.yml")
	var out bytes.Buffer

	result, err := GenerateMissing(context.Background(), graph(t), []string{"models/staging/stg_customers.sql"}, GenerateOptions{
		SchemaFile: schemaFile,
		DryRun:     true,
		Out:        &out,
	})
	require.NoError(t, err)
	require.True(t, result.DryRun)
	require.False(t, result.Written)
	require.Len(t, result.Additions, 2)
	require.True(t, strings.HasPrefix(out.String(), "[dry-run] Adding schema source for `raw.customers`."))

	_, err = os.Stat(schemaFile)
	require.True(t, os.IsNotExist(err))
}

func TestGenerateMissingMalformedSchemaIsLoadError(t *testing.T) {
	schemaFile := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(schemaFile, []byte("- not\n- a mapping\n"), 0644))

	_, err := GenerateMissing(context.Background(), graph(t), []string{"models/staging/stg_orders.sql"}, GenerateOptions{SchemaFile: schemaFile, Out: &bytes.Buffer{}})
	var loadErr *fileutil.LoadError
	require.True(t, errors.As(err, &loadErr), "expected LoadError, got %v", err)
}
