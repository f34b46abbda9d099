// Package ingest connects the import pipeline to the network graph. When a
// connection is imported it decides, by exact profile-identifier match,
// whether the new record is a duplicate of one already imported for the same
// account, and forwards the canonical node to the graph. It never creates a
// comparison or a merge; this is the lightweight sibling of the engine's
// fast path, run before a node ever reaches the comparison subsystem.
package ingest

import (
	"context"
	"fmt"

	"github.com/personet/doppel/internal/core/similarity"
	"github.com/personet/doppel/internal/store"
)

const sourceLinkedIn = "linkedin"

type Sync struct {
	connections store.ConnectionStore
	network     store.Network
}

func NewSync(connections store.ConnectionStore, network store.Network) *Sync {
	return &Sync{
		connections: connections,
		network:     network,
	}
}

// ConnectionAdded handles one "connection added" event and returns the node
// that was forwarded to the network. When a previously imported sibling
// carries the same normalized profile URL, that sibling is the canonical
// node and the new connection never becomes a node of its own. If the new
// record cannot be found among the account's connections, the connection id
// is forwarded as-is.
func (s *Sync) ConnectionAdded(ctx context.Context, account, connection, owner string) (string, error) {
	conns, err := s.connections.Connections(ctx, account)
	if err != nil {
		return "", fmt.Errorf("failed to load connections for account %s: %w", account, err)
	}

	canonical := connection
	for i := range conns {
		if conns[i].UUID != connection {
			continue
		}
		if handle := similarity.NormalizeProfileURL(conns[i].ProfileURL); handle != "" {
			for _, sibling := range conns {
				if sibling.UUID == connection {
					continue
				}
				if similarity.NormalizeProfileURL(sibling.ProfileURL) == handle {
					canonical = sibling.UUID
					break
				}
			}
		}
		break
	}

	if err := s.network.AddNodeToNetwork(ctx, owner, canonical, sourceLinkedIn); err != nil {
		return "", fmt.Errorf("failed to add node to network: %w", err)
	}
	return canonical, nil
}
