// Package objects provides the PostgreSQL-backed view of live repository
// objects and their binary descriptors.
package objects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/preservd/internal/common"
	"github.com/dmitrijs2005/preservd/internal/dbx"
	"github.com/dmitrijs2005/preservd/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get loads the object snapshot and its binaries in position order.
// Returns common.ErrorNotFound when the object does not exist.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.LiveObject, error) {
	query := `SELECT id, metadata, public_metadata, is_public FROM live_objects WHERE id=$1`

	obj := &models.LiveObject{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&obj.ID, &obj.Metadata, &obj.PublicMetadata, &obj.Public)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("live object %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select object: %w", err)
	}

	binaries, err := r.binaries(ctx, id)
	if err != nil {
		return nil, err
	}
	obj.Binaries = binaries
	return obj, nil
}

func (r *PostgresRepository) binaries(ctx context.Context, objectID string) ([]models.BinaryDescriptor, error) {
	query := `SELECT id, digest, local_path, file_format, mime_type FROM live_binaries
		WHERE object_id=$1 ORDER BY position, id`

	rows, err := r.db.QueryContext(ctx, query, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to select binaries: %w", err)
	}
	defer rows.Close()

	var result []models.BinaryDescriptor
	for rows.Next() {
		var (
			b          models.BinaryDescriptor
			localPath  sql.NullString
			fileFormat sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Digest, &localPath, &fileFormat, &b.MimeType); err != nil {
			return nil, err
		}
		b.LocalPath = localPath.String
		if fileFormat.Valid {
			// file_format only carries a URL for file-by-reference binaries
			if url, err := models.ParseExternalBody(fileFormat.String); err == nil {
				b.ReferenceURL = url
			}
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// StorageKey returns the object-storage key holding the binary's original
// content.
func (r *PostgresRepository) StorageKey(ctx context.Context, objectID, binaryID string) (string, error) {
	query := `SELECT storage_key FROM live_binaries WHERE object_id=$1 AND id=$2`

	var key sql.NullString
	err := r.db.QueryRowContext(ctx, query, objectID, binaryID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !key.Valid) {
		return "", fmt.Errorf("storage key for %s/%s: %w", objectID, binaryID, common.ErrorNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to select storage key: %w", err)
	}
	return key.String, nil
}
