package streams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Credentials.AccessToken = "test-token"
	return cfg
}

func TestRegistryHasFullCatalog(t *testing.T) {
	names := Names()
	for _, expected := range []string{
		"conversations", "conversation_parts",
		"contacts_list", "contacts",
		"tickets_list", "tickets",
		"collections", "events", "admins", "articles",
		"tags", "teams", "segments",
	} {
		assert.Contains(t, names, expected)
	}
	assert.Len(t, names, 13)
}

func TestBuildCatalogWiresChildren(t *testing.T) {
	cfg := testConfig()
	client := clients.NewClient(cfg, nil)

	catalog, err := BuildCatalog(cfg, client)
	require.NoError(t, err)
	assert.Len(t, catalog.All, 13)
	assert.Len(t, catalog.Roots, 10)

	for _, root := range catalog.Roots {
		assert.Empty(t, root.Parent())
		switch root.Name() {
		case "conversations", "contacts_list", "tickets_list":
			require.Len(t, root.Children(), 1)
		default:
			assert.Empty(t, root.Children())
		}
	}
}

func TestBuildCatalogSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Streams = []string{"conversations", "tags"}
	client := clients.NewClient(cfg, nil)

	catalog, err := BuildCatalog(cfg, client)
	require.NoError(t, err)

	// conversation_parts comes along with its parent.
	names := make([]string, 0, len(catalog.All))
	for _, s := range catalog.All {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"conversations", "conversation_parts", "tags"}, names)
}

func TestBuildCatalogRejectsUnknownStream(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Streams = []string{"nope"}
	_, err := BuildCatalog(cfg, clients.NewClient(cfg, nil))
	assert.Error(t, err)
}

func TestBuildCatalogRejectsChildSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Streams = []string{"conversation_parts"}
	_, err := BuildCatalog(cfg, clients.NewClient(cfg, nil))
	assert.Error(t, err)
}

func TestBuildCatalogPrimaryKeyOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.PrimaryKeyOverrides = map[string][]string{
		"tags": {"workspace_id", "id"},
	}
	catalog, err := BuildCatalog(cfg, clients.NewClient(cfg, nil))
	require.NoError(t, err)

	for _, s := range catalog.All {
		if s.Name() == "tags" {
			assert.Equal(t, []string{"workspace_id", "id"}, s.KeyProperties())
		}
	}
}

func TestBuildCatalogRejectsBadOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.PrimaryKeyOverrides = map[string][]string{"nope": {"id"}}
	_, err := BuildCatalog(cfg, clients.NewClient(cfg, nil))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Catalog.PrimaryKeyOverrides = map[string][]string{"tags": {}}
	_, err = BuildCatalog(cfg, clients.NewClient(cfg, nil))
	assert.Error(t, err)
}
