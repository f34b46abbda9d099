package driver

const (
	// UpsertComparisonQuery is the atomic find-or-create for a node pair.
	// MERGE on pair_key means two racing compareNodes calls converge on one
	// record. A re-comparison replaces the snapshots and reopens a decided
	// comparison to pending; scoring fields are left untouched.
	UpsertComparisonQuery = `
		MERGE (c:Comparison {pair_key: $pair_key})
		ON CREATE SET c.uuid = $uuid,
			c.created_at = $created_at
		SET c.node_a = $node_a,
			c.node_b = $node_b,
			c.node_a_info = $node_a_info,
			c.node_b_info = $node_b_info,
			c.user_decision = "pending"
		RETURN c.uuid AS uuid
	`

	// UpsertScoredComparisonQuery is the fast-path variant: an exact profile
	// match writes the scoring fields wholesale along with the snapshots.
	UpsertScoredComparisonQuery = `
		MERGE (c:Comparison {pair_key: $pair_key})
		ON CREATE SET c.uuid = $uuid,
			c.created_at = $created_at
		SET c.node_a = $node_a,
			c.node_b = $node_b,
			c.node_a_info = $node_a_info,
			c.node_b_info = $node_b_info,
			c.similarity_score = $similarity_score,
			c.confidence = $confidence,
			c.reasoning = $reasoning,
			c.user_decision = "pending"
		RETURN c.uuid AS uuid
	`

	comparisonReturn = `
		RETURN c.uuid AS uuid, c.node_a AS node_a, c.node_b AS node_b,
			c.similarity_score AS similarity_score, c.confidence AS confidence,
			c.reasoning AS reasoning, c.user_decision AS user_decision,
			c.confirmed_at AS confirmed_at, c.created_at AS created_at,
			c.node_a_info AS node_a_info, c.node_b_info AS node_b_info
	`

	GetComparisonQuery = `
		MATCH (c:Comparison {uuid: $uuid})` + comparisonReturn

	GetComparisonByPairQuery = `
		MATCH (c:Comparison {pair_key: $pair_key})` + comparisonReturn

	GetComparisonsForNodeQuery = `
		MATCH (c:Comparison)
		WHERE c.node_a = $node OR c.node_b = $node` + comparisonReturn

	GetPendingComparisonsQuery = `
		MATCH (c:Comparison {user_decision: "pending"})` + comparisonReturn

	// SetScoreQuery only fires while the comparison is unscored, so racing
	// analyze calls collapse to a single winner.
	SetScoreQuery = `
		MATCH (c:Comparison {uuid: $uuid})
		WHERE c.similarity_score IS NULL
		SET c.similarity_score = $similarity_score,
			c.confidence = $confidence,
			c.reasoning = $reasoning
		RETURN c.uuid AS uuid
	`

	// SetDecisionQuery re-checks pending at write time; a second concurrent
	// confirmation matches nothing.
	SetDecisionQuery = `
		MATCH (c:Comparison {uuid: $uuid})
		WHERE c.user_decision = "pending"
		SET c.user_decision = $decision,
			c.confirmed_at = $confirmed_at
		RETURN c.uuid AS uuid
	`

	DeletePendingComparisonQuery = `
		MATCH (c:Comparison {uuid: $uuid})
		WHERE c.user_decision = "pending"
		WITH c, c.uuid AS uuid
		DELETE c
		RETURN uuid
	`

	CreateMergeQuery = `
		CREATE (m:Merge {uuid: $uuid, absorbed: $absorbed, canonical: $canonical,
			comparison: $comparison, merged_at: $merged_at, merged_by: $merged_by})
		RETURN m.uuid AS uuid
	`

	GetMergesForNodeQuery = `
		MATCH (m:Merge)
		WHERE m.absorbed = $node OR m.canonical = $node
		RETURN m.uuid AS uuid, m.absorbed AS absorbed, m.canonical AS canonical,
			m.comparison AS comparison, m.merged_at AS merged_at, m.merged_by AS merged_by
	`

	SaveConnectionQuery = `
		MERGE (n:Connection {uuid: $uuid})
		SET n.account = $account,
			n.profile_url = $profile_url,
			n.attributes = $attributes
		RETURN n.uuid AS uuid
	`

	GetConnectionsQuery = `
		MATCH (n:Connection {account: $account})
		RETURN n.uuid AS uuid, n.account AS account,
			n.profile_url AS profile_url, n.attributes AS attributes
	`

	AddNodeToNetworkQuery = `
		MERGE (o:Owner {uuid: $owner})
		MERGE (p:Person {uuid: $node})
		MERGE (o)-[r:HAS_NODE]->(p)
		SET r.source = $source
		RETURN p.uuid AS uuid
	`

	// RepointMembershipQuery folds the absorbed node's memberships onto the
	// canonical node; DeleteAbsorbedQuery then removes the stub. Run in that
	// order by ApplyMerge.
	RepointMembershipQuery = `
		MATCH (o:Owner)-[r:HAS_NODE]->(absorbed:Person {uuid: $absorbed})
		MATCH (canonical:Person {uuid: $canonical})
		MERGE (o)-[nr:HAS_NODE]->(canonical)
		ON CREATE SET nr.source = r.source
		DELETE r
	`

	DeleteAbsorbedQuery = `
		MATCH (n:Person {uuid: $absorbed})
		DETACH DELETE n
	`
)
