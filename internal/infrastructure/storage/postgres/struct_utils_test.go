package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"facturio/internal/core/entity"
	"facturio/internal/core/id"
)

type mockAccount struct {
	entity.BaseEntity
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

func TestExtractDBColumns_EmbeddedBase(t *testing.T) {
	cols := ExtractDBColumns[mockAccount]()

	expectedCols := []string{
		"id", "company_id", "deletion_mark", "version", "code", "name",
	}
	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap_EmbeddedBase(t *testing.T) {
	acc := mockAccount{
		BaseEntity: entity.BaseEntity{
			ID:           id.New(),
			CompanyID:    id.New(),
			DeletionMark: true,
			Version:      5,
		},
		Code: "532",
		Name: "Banque",
	}

	m := StructToMap(acc)

	assert.Equal(t, acc.ID, m["id"])
	assert.Equal(t, acc.CompanyID, m["company_id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "532", m["code"])
	assert.Equal(t, "Banque", m["name"])
}
