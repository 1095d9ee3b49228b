package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Client struct {
	pool *pgxpool.Pool
}

func NewClient(ctx context.Context, connString string) (*Client, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{pool: pool}, nil
}

func (c *Client) Close() {
	c.pool.Close()
}

// a three-part catalog name mapped onto postgres: the catalog part is
// ignored, schema and table address the relation
type TableName struct {
	Catalog string
	Schema  string
	Table   string
}

func ParseTableName(fullName string) (TableName, error) {
	parts := strings.Split(fullName, ".")
	if len(parts) != 3 {
		return TableName{}, fmt.Errorf("expected catalog.schema.table, got %q", fullName)
	}

	for _, p := range parts {
		if p == "" {
			return TableName{}, fmt.Errorf("expected catalog.schema.table, got %q", fullName)
		}
	}

	return TableName{Catalog: parts[0], Schema: parts[1], Table: parts[2]}, nil
}

func (t TableName) String() string {
	return t.Catalog + "." + t.Schema + "." + t.Table
}

// quoted schema.table for use in SQL text
func (t TableName) Sanitize() string {
	return pgx.Identifier{t.Schema, t.Table}.Sanitize()
}
