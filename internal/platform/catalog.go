package platform

import (
	"context"
	"fmt"
)

type ColumnInfo struct {
	Name     string `json:"name"`
	TypeText string `json:"type_text"`
	TypeName string `json:"type_name,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Position int    `json:"position"`
	Nullable bool   `json:"nullable"`
}

type TableInfo struct {
	Name        string       `json:"name"`
	CatalogName string       `json:"catalog_name"`
	SchemaName  string       `json:"schema_name"`
	FullName    string       `json:"full_name"`
	TableType   string       `json:"table_type,omitempty"`
	Comment     string       `json:"comment,omitempty"`
	Columns     []ColumnInfo `json:"columns"`
}

// fetches table metadata (columns, types, comments)
func (c *Client) GetTable(ctx context.Context, fullName string) (*TableInfo, error) {
	var info TableInfo
	if err := c.get(ctx, "/api/2.1/unity-catalog/tables/"+escape(fullName), nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", fullName, err)
	}

	return &info, nil
}
