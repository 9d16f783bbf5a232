// internal/store/twizzit.go
package store

import (
	"context"
	"database/sql"
)

const twizzitCredentialColumns = `id, organization_name, username, encrypted_password, api_endpoint, is_active, last_verified_at, created_at, updated_at`

func scanTwizzitCredential(row rowScanner) (TwizzitCredential, error) {
	var c TwizzitCredential
	err := row.Scan(
		&c.ID,
		&c.OrganizationName,
		&c.Username,
		&c.EncryptedPassword,
		&c.APIEndpoint,
		&c.IsActive,
		&c.LastVerifiedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

type CreateTwizzitCredentialParams struct {
	OrganizationName  string
	Username          string
	EncryptedPassword string
	APIEndpoint       string
}

const createTwizzitCredential = `INSERT INTO twizzit_credentials (organization_name, username, encrypted_password, api_endpoint)
VALUES (?, ?, ?, ?)
RETURNING ` + twizzitCredentialColumns

func (q *Queries) CreateTwizzitCredential(ctx context.Context, arg CreateTwizzitCredentialParams) (TwizzitCredential, error) {
	row := q.db.QueryRowContext(ctx, createTwizzitCredential, arg.OrganizationName, arg.Username, arg.EncryptedPassword, arg.APIEndpoint)
	return scanTwizzitCredential(row)
}

const getTwizzitCredential = `SELECT ` + twizzitCredentialColumns + ` FROM twizzit_credentials WHERE id = ?`

func (q *Queries) GetTwizzitCredential(ctx context.Context, id int64) (TwizzitCredential, error) {
	return scanTwizzitCredential(q.db.QueryRowContext(ctx, getTwizzitCredential, id))
}

const listTwizzitCredentials = `SELECT ` + twizzitCredentialColumns + ` FROM twizzit_credentials ORDER BY organization_name, id`

func (q *Queries) ListTwizzitCredentials(ctx context.Context) ([]TwizzitCredential, error) {
	return query(ctx, q.db, listTwizzitCredentials, scanTwizzitCredential)
}

const listActiveTwizzitCredentials = `SELECT ` + twizzitCredentialColumns + ` FROM twizzit_credentials WHERE is_active = 1 ORDER BY id`

func (q *Queries) ListActiveTwizzitCredentials(ctx context.Context) ([]TwizzitCredential, error) {
	return query(ctx, q.db, listActiveTwizzitCredentials, scanTwizzitCredential)
}

const markTwizzitCredentialVerified = `UPDATE twizzit_credentials SET last_verified_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) MarkTwizzitCredentialVerified(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markTwizzitCredentialVerified, id)
	return err
}

const deleteTwizzitCredential = `DELETE FROM twizzit_credentials WHERE id = ?`

func (q *Queries) DeleteTwizzitCredential(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteTwizzitCredential, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const twizzitMappingColumns = `id, credential_id, entity_type, twizzit_id, local_id, twizzit_name, last_synced_at`

func scanTwizzitMapping(row rowScanner) (TwizzitMapping, error) {
	var m TwizzitMapping
	err := row.Scan(&m.ID, &m.CredentialID, &m.EntityType, &m.TwizzitID, &m.LocalID, &m.TwizzitName, &m.LastSyncedAt)
	return m, err
}

const getTwizzitMapping = `SELECT ` + twizzitMappingColumns + ` FROM twizzit_mappings
WHERE credential_id = ? AND entity_type = ? AND twizzit_id = ?`

func (q *Queries) GetTwizzitMapping(ctx context.Context, credentialID int64, entityType, twizzitID string) (TwizzitMapping, error) {
	return scanTwizzitMapping(q.db.QueryRowContext(ctx, getTwizzitMapping, credentialID, entityType, twizzitID))
}

type UpsertTwizzitMappingParams struct {
	CredentialID int64
	EntityType   string
	TwizzitID    string
	LocalID      int64
	TwizzitName  string
}

const upsertTwizzitMapping = `INSERT INTO twizzit_mappings (credential_id, entity_type, twizzit_id, local_id, twizzit_name)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (credential_id, entity_type, twizzit_id) DO UPDATE SET
    local_id = excluded.local_id,
    twizzit_name = excluded.twizzit_name,
    last_synced_at = CURRENT_TIMESTAMP
RETURNING ` + twizzitMappingColumns

func (q *Queries) UpsertTwizzitMapping(ctx context.Context, arg UpsertTwizzitMappingParams) (TwizzitMapping, error) {
	row := q.db.QueryRowContext(ctx, upsertTwizzitMapping, arg.CredentialID, arg.EntityType, arg.TwizzitID, arg.LocalID, arg.TwizzitName)
	return scanTwizzitMapping(row)
}

const listTwizzitMappings = `SELECT ` + twizzitMappingColumns + ` FROM twizzit_mappings
WHERE credential_id = ?1 AND (?2 = '' OR entity_type = ?2)
ORDER BY entity_type, twizzit_name, id`

func (q *Queries) ListTwizzitMappings(ctx context.Context, credentialID int64, entityType string) ([]TwizzitMapping, error) {
	return query(ctx, q.db, listTwizzitMappings, scanTwizzitMapping, credentialID, entityType)
}

const twizzitSyncLogColumns = `id, run_id, credential_id, scope, status, items_processed, items_succeeded, items_failed, error_message, started_at, completed_at`

func scanTwizzitSyncLog(row rowScanner) (TwizzitSyncLog, error) {
	var l TwizzitSyncLog
	err := row.Scan(
		&l.ID,
		&l.RunID,
		&l.CredentialID,
		&l.Scope,
		&l.Status,
		&l.ItemsProcessed,
		&l.ItemsSucceeded,
		&l.ItemsFailed,
		&l.ErrorMessage,
		&l.StartedAt,
		&l.CompletedAt,
	)
	return l, err
}

const createTwizzitSyncLog = `INSERT INTO twizzit_sync_logs (run_id, credential_id, scope) VALUES (?, ?, ?)
RETURNING ` + twizzitSyncLogColumns

func (q *Queries) CreateTwizzitSyncLog(ctx context.Context, runID string, credentialID int64, scope string) (TwizzitSyncLog, error) {
	return scanTwizzitSyncLog(q.db.QueryRowContext(ctx, createTwizzitSyncLog, runID, credentialID, scope))
}

type FinishTwizzitSyncLogParams struct {
	ID             int64
	Status         string
	ItemsProcessed int64
	ItemsSucceeded int64
	ItemsFailed    int64
	ErrorMessage   sql.NullString
}

const finishTwizzitSyncLog = `UPDATE twizzit_sync_logs
SET status = ?, items_processed = ?, items_succeeded = ?, items_failed = ?, error_message = ?, completed_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + twizzitSyncLogColumns

func (q *Queries) FinishTwizzitSyncLog(ctx context.Context, arg FinishTwizzitSyncLogParams) (TwizzitSyncLog, error) {
	row := q.db.QueryRowContext(ctx, finishTwizzitSyncLog,
		arg.Status,
		arg.ItemsProcessed,
		arg.ItemsSucceeded,
		arg.ItemsFailed,
		arg.ErrorMessage,
		arg.ID,
	)
	return scanTwizzitSyncLog(row)
}

const listTwizzitSyncLogs = `SELECT ` + twizzitSyncLogColumns + ` FROM twizzit_sync_logs
WHERE credential_id = ?
ORDER BY started_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListTwizzitSyncLogs(ctx context.Context, credentialID, limit int64) ([]TwizzitSyncLog, error) {
	return query(ctx, q.db, listTwizzitSyncLogs, scanTwizzitSyncLog, credentialID, limit)
}

const getTwizzitSyncLogByRunID = `SELECT ` + twizzitSyncLogColumns + ` FROM twizzit_sync_logs WHERE run_id = ?`

func (q *Queries) GetTwizzitSyncLogByRunID(ctx context.Context, runID string) (TwizzitSyncLog, error) {
	return scanTwizzitSyncLog(q.db.QueryRowContext(ctx, getTwizzitSyncLogByRunID, runID))
}
