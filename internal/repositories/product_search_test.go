package repositories

import (
	"testing"

	"productapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameContainsQuery(t *testing.T) {
	query, pattern := nameContainsQuery("postgres", "Éclair_")
	assert.Equal(t, `name ILIKE ? ESCAPE '\'`, query)
	assert.Equal(t, `%Éclair\_%`, pattern)

	query, pattern = nameContainsQuery("sqlite", "Éclair_")
	assert.Equal(t, `LOWER(name) LIKE ? ESCAPE '\'`, query)
	assert.Equal(t, `%éclair\_%`, pattern)
}

func TestMockProductRepository_FindByNameContainsFoldsUnicode(t *testing.T) {
	repo := NewMockProductRepository()
	require.NoError(t, repo.Save(&models.Product{Name: "Éclair Box"}))

	found, err := repo.FindByNameContains("éclair")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Éclair Box", found[0].Name)
}
