package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/chroma"
	"github.com/papercomputeco/engram/pkg/vector/inmemory"
	"github.com/papercomputeco/engram/pkg/vector/pgvector"
	"github.com/papercomputeco/engram/pkg/vector/qdrant"
	"github.com/papercomputeco/engram/pkg/vector/sqlitevec"
)

// Supported vector store providers.
const (
	ProviderInMemory = "inmemory"
	ProviderChroma   = "chroma"
	ProviderSQLite   = "sqlite"
	ProviderQdrant   = "qdrant"
	ProviderPGVector = "pgvector"
)

// Providers lists every provider NewVectorDriver accepts.
var Providers = []string{ProviderInMemory, ProviderChroma, ProviderSQLite, ProviderQdrant, ProviderPGVector}

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is provider specific: the chroma base URL, the qdrant
	// "host:port" or the postgres connection string.
	TargetURL string

	// Collection names the chroma/qdrant collection, the postgres table or
	// the sqlite table pair.
	Collection string

	// SQLitePath is used by the sqlite provider.
	SQLitePath string

	// Dimensions of the configured embedder.
	Dimensions uint

	Logger *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderInMemory, "":
		return inmemory.NewDriver(), nil
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case ProviderSQLite:
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.SQLitePath,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderQdrant:
		host, port, err := splitHostPort(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:           host,
			Port:           port,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case ProviderPGVector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: o.TargetURL,
			TableName:  o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// splitHostPort accepts "host" or "host:port".
func splitHostPort(target string) (string, int, error) {
	if target == "" {
		return "", 0, fmt.Errorf("qdrant target is required")
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port given
		return target, qdrant.DefaultPort, nil //nolint:nilerr
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}
