// Package models defines the relations the matcher is exercised against.
//
// Each model carries gorm tags and an explicit TableName. The key columns
// are resolved from these tags, so a field can map to a differently named
// column (Parity.ID is stored as parity_key).
//
// # Relations
//
//   - numbers: integer values (Number), with NumberCandidate as a foreign item shape.
//   - prices: dated quotes with a nullable value (Price).
//   - teams: client generated uuid keys (Team).
//   - generated_teams: store generated keys (GeneratedTeam).
//   - parities: primary key column named differently from its field (Parity).
package models
