package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/paperledger/paperledger/internal/accounting/shared"
)

type Repository interface {
	Get(ctx context.Context, documentType string, role Role) (AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Get resolves the account mapped to a document type and line role.
func (r *repository) Get(ctx context.Context, documentType string, role Role) (AccountMapping, error) {
	if documentType == "" || role == "" {
		return AccountMapping{}, errors.New("accounting: document type and role required")
	}
	normalized := strings.ToUpper(documentType)
	var mapping AccountMapping
	err := r.db.QueryRow(ctx, `SELECT document_type, role, account_id, created_at, updated_at FROM account_mappings WHERE document_type=$1 AND role=$2`, normalized, role).
		Scan(&mapping.DocumentType, &mapping.Role, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, acctshared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}
