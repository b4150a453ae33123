package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/credvault/pkg/models"
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgxpool connection and returns a ready store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

// --- Accounts ---

func (p *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO accounts (login, password_hash, key_material, contact, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id`,
		a.Login, a.PasswordHash, a.KeyMaterial, a.Contact,
	).Scan(&id)
	if err != nil {
		return 0, translateUnique(err)
	}
	return id, nil
}

// translateUnique maps unique-constraint violations onto the duplicate
// sentinels, keyed by constraint name.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "login"):
			return ErrDuplicateLogin
		case strings.Contains(pgErr.ConstraintName, "contact"):
			return ErrDuplicateContact
		}
	}
	return err
}

const accountColumns = `id, login, password_hash, key_material, contact, active, created_at, last_login_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Login, &a.PasswordHash, &a.KeyMaterial,
		&a.Contact, &a.Active, &a.CreatedAt, &a.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (p *PostgresStore) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return scanAccount(p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (p *PostgresStore) GetAccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	return scanAccount(p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE login = $1`, login))
}

func (p *PostgresStore) GetAccountByContact(ctx context.Context, contact string) (*models.Account, error) {
	return scanAccount(p.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE contact = $1`, contact))
}

func (p *PostgresStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

func (p *PostgresStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) UpdateProfile(ctx context.Context, id int64, upd models.ProfileUpdate) error {
	set := []string{}
	args := []any{}
	n := 1
	if upd.Contact != nil {
		set = append(set, fmt.Sprintf("contact = $%d", n))
		args = append(args, *upd.Contact)
		n++
	}
	if upd.KeyMaterial != nil {
		set = append(set, fmt.Sprintf("key_material = $%d", n))
		args = append(args, *upd.KeyMaterial)
		n++
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	tag, err := p.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d`, strings.Join(set, ", "), n),
		args...,
	)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) DeactivateAccount(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Password reset tokens ---

func (p *PostgresStore) CreateResetToken(ctx context.Context, t *models.ResetToken) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO reset_tokens (token_hash, account_id, expires_at)
		 VALUES ($1, $2, $3)`,
		t.TokenHash, t.AccountID, t.ExpiresAt,
	)
	return err
}

func (p *PostgresStore) ConsumeResetToken(ctx context.Context, tokenHash string) (*models.ResetToken, error) {
	row := p.pool.QueryRow(ctx,
		`UPDATE reset_tokens
		 SET used_at = NOW()
		 WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		 RETURNING token_hash, account_id, created_at, expires_at, used_at`,
		tokenHash,
	)
	var t models.ResetToken
	err := row.Scan(&t.TokenHash, &t.AccountID, &t.CreatedAt, &t.ExpiresAt, &t.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// --- Credentials ---

const credentialColumns = `id, owner_id, title, category, service_name, service_url,
	account_username, encrypted_secret, strength, active, created_at, updated_at`

func scanCredential(row pgx.Row) (*models.CredentialRecord, error) {
	var c models.CredentialRecord
	err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Category, &c.ServiceName,
		&c.ServiceURL, &c.AccountUsername, &c.EncryptedSecret, &c.Strength,
		&c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (p *PostgresStore) InsertCredential(ctx context.Context, c *models.CredentialRecord) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO credentials (owner_id, title, category, service_name, service_url,
		                          account_username, encrypted_secret, strength, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		 RETURNING id`,
		c.OwnerID, c.Title, c.Category, c.ServiceName, c.ServiceURL,
		c.AccountUsername, c.EncryptedSecret, c.Strength,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (p *PostgresStore) GetCredential(ctx context.Context, id, ownerID int64) (*models.CredentialRecord, error) {
	return scanCredential(p.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+`
		 FROM credentials
		 WHERE id = $1 AND owner_id = $2 AND active`,
		id, ownerID,
	))
}

func (p *PostgresStore) ListCredentials(ctx context.Context, ownerID int64, category string) ([]*models.CredentialRecord, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + credentialColumns + `
		 FROM credentials WHERE owner_id = $1 AND active`)
	args := []any{ownerID}
	if category != "" {
		query.WriteString(` AND category = $2`)
		args = append(args, category)
	}
	query.WriteString(` ORDER BY updated_at DESC`)

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCredentials(rows)
}

func (p *PostgresStore) SearchCredentials(ctx context.Context, ownerID int64, field, query string) ([]*models.CredentialRecord, error) {
	pattern := "%" + escapeLike(query) + "%"
	var cond string
	switch field {
	case "title":
		cond = `title ILIKE $2`
	case "username":
		cond = `account_username ILIKE $2`
	case "website":
		cond = `(service_name ILIKE $2 OR service_url ILIKE $2)`
	default: // "all"
		cond = `(title ILIKE $2 OR account_username ILIKE $2 OR service_name ILIKE $2 OR service_url ILIKE $2)`
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+credentialColumns+`
		 FROM credentials
		 WHERE owner_id = $1 AND active AND `+cond+`
		 ORDER BY updated_at DESC`,
		ownerID, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCredentials(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func collectCredentials(rows pgx.Rows) ([]*models.CredentialRecord, error) {
	var out []*models.CredentialRecord
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateCredential(ctx context.Context, id, ownerID int64, mut models.CredentialMutation) error {
	set := []string{}
	args := []any{}
	n := 1
	add := func(col string, val any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, val)
		n++
	}
	if mut.Title != nil {
		add("title", *mut.Title)
	}
	if mut.Category != nil {
		add("category", *mut.Category)
	}
	if mut.ServiceName != nil {
		add("service_name", *mut.ServiceName)
	}
	if mut.ServiceURL != nil {
		add("service_url", *mut.ServiceURL)
	}
	if mut.AccountUsername != nil {
		add("account_username", *mut.AccountUsername)
	}
	if mut.EncryptedSecret != nil {
		add("encrypted_secret", mut.EncryptedSecret)
	}
	if mut.Strength != nil {
		add("strength", *mut.Strength)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = NOW()")

	args = append(args, id, ownerID)
	// A single UPDATE keeps per-record writes serialized at the database;
	// concurrent updates resolve last-writer-wins.
	tag, err := p.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE credentials SET %s WHERE id = $%d AND owner_id = $%d AND active`,
			strings.Join(set, ", "), n, n+1),
		args...,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) SoftDeleteCredential(ctx context.Context, id, ownerID int64) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE credentials
		 SET active = FALSE, updated_at = NOW()
		 WHERE id = $1 AND owner_id = $2 AND active`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	// Deleting an already inactive record matches no row and surfaces as
	// not found; double delete is an error, not a no-op.
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Audit ---

func (p *PostgresStore) WriteAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO audit_log (request_id, ts, operation, account_id, credential_id,
		                        status, response_code, latency_ms, client_ip)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.RequestID, e.Timestamp, e.Operation, nullableID(e.AccountID), e.CredentialID,
		e.Status, e.ResponseCode, e.LatencyMs, e.ClientIP,
	)
	return err
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func (p *PostgresStore) QueryAuditLog(ctx context.Context, filter AuditFilter) ([]*models.AuditEntry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, request_id, ts, operation, account_id, credential_id,
		status, response_code, latency_ms, client_ip
		FROM audit_log WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.AccountID != 0 {
		fmt.Fprintf(&query, ` AND account_id = $%d`, n)
		args = append(args, filter.AccountID)
		n++
	}
	if filter.Operation != "" {
		fmt.Fprintf(&query, ` AND operation = $%d`, n)
		args = append(args, filter.Operation)
		n++
	}
	if filter.Since != nil {
		fmt.Fprintf(&query, ` AND ts >= $%d`, n)
		args = append(args, filter.Since)
		n++
	}
	query.WriteString(` ORDER BY ts DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var accountID *int64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Timestamp, &e.Operation,
			&accountID, &e.CredentialID, &e.Status, &e.ResponseCode,
			&e.LatencyMs, &e.ClientIP); err != nil {
			return nil, err
		}
		if accountID != nil {
			e.AccountID = *accountID
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- Metrics ---

func (p *PostgresStore) CountActiveAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE active`).Scan(&count)
	return count, err
}

func (p *PostgresStore) CountActiveCredentials(ctx context.Context) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM credentials WHERE active`).Scan(&count)
	return count, err
}
