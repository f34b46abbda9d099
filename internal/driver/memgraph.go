package driver

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(uri, username, password string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to Memgraph")
	return &MemgraphDriver{Driver: driver}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	// pair_key is the canonical-order key for a comparison. The unique
	// constraint is load-bearing: under snapshot isolation two racing
	// MERGEs can both miss and both create, so the constraint has to make
	// the losing commit fail instead of leaving a duplicate pair.
	queries := []string{
		"CREATE CONSTRAINT ON (c:Comparison) ASSERT c.pair_key IS UNIQUE;",
		"CREATE INDEX ON :Comparison(uuid);",
		"CREATE INDEX ON :Comparison(pair_key);",
		"CREATE INDEX ON :Comparison(user_decision);",
		"CREATE INDEX ON :Merge(uuid);",
		"CREATE INDEX ON :Connection(uuid);",
		"CREATE INDEX ON :Connection(account);",
		"CREATE INDEX ON :Person(uuid);",
		"CREATE INDEX ON :Owner(uuid);",
	}

	for _, q := range queries {
		_, err := d.ExecuteQuery(ctx, q, nil)
		if err != nil {
			// Index probably exists already; not fatal.
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}

	return nil
}
