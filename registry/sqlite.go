package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/proofofaudit/audit-registry-backend/interfaces"
)

// SqliteStore implements interfaces.RegistryStore on a sqlite database.
// Certificate ids are driven by a dedicated counter row so an id allocated
// for a failed insert is never handed out again.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore opens (and if necessary creates) the database at dbPath
// and initializes the schema.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return store, nil
}

func (s *SqliteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			id INTEGER PRIMARY KEY,
			beneficiary TEXT NOT NULL,
			contract TEXT NOT NULL,
			chain_id INTEGER NOT NULL,
			score INTEGER NOT NULL,
			report_pointer TEXT NOT NULL,
			issuer TEXT NOT NULL,
			issued_at DATETIME NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create certificates table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS contract_index (
			chain_id INTEGER NOT NULL,
			contract TEXT NOT NULL,
			certificate_id INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create contract_index table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE INDEX IF NOT EXISTS contract_index_lookup
		ON contract_index (chain_id, contract);
	`)
	if err != nil {
		return fmt.Errorf("failed to create contract_index index: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS id_counter (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			next_id INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create id_counter table: %w", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM id_counter").Scan(&count); err != nil {
		return fmt.Errorf("failed to check id counter: %w", err)
	}
	if count == 0 {
		if _, err := s.db.Exec("INSERT INTO id_counter (id, next_id) VALUES (1, 1)"); err != nil {
			return fmt.Errorf("failed to initialize id counter: %w", err)
		}
	}

	return nil
}

// Close closes the underlying database.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// Allocate reserves and returns the next sequential id.
func (s *SqliteStore) Allocate() (interfaces.CertificateID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin allocation: %w", err)
	}
	defer tx.Rollback()

	var id uint64
	if err := tx.QueryRow("SELECT next_id FROM id_counter WHERE id = 1").Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read id counter: %w", err)
	}

	if _, err := tx.Exec("UPDATE id_counter SET next_id = next_id + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to advance id counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit allocation: %w", err)
	}

	return interfaces.CertificateID(id), nil
}

// Insert stores a fully populated record.
func (s *SqliteStore) Insert(cert *interfaces.Certificate) error {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM certificates WHERE id = ?", cert.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check certificate existence: %w", err)
	}
	if exists > 0 {
		return interfaces.ErrAlreadyExists
	}

	_, err = s.db.Exec(`
		INSERT INTO certificates (id, beneficiary, contract, chain_id, score, report_pointer, issuer, issued_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		cert.ID,
		cert.Beneficiary.String(),
		cert.Contract.String(),
		cert.ChainID,
		cert.Score,
		cert.ReportPointer,
		cert.Issuer.String(),
		cert.IssuedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert certificate: %w", err)
	}
	return nil
}

// InsertIndexed stores the record and its contract index row in one
// transaction, so a failure on either leg leaves no partial state.
func (s *SqliteStore) InsertIndexed(cert *interfaces.Certificate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin indexed insert: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM certificates WHERE id = ?", cert.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check certificate existence: %w", err)
	}
	if exists > 0 {
		return interfaces.ErrAlreadyExists
	}

	_, err = tx.Exec(`
		INSERT INTO certificates (id, beneficiary, contract, chain_id, score, report_pointer, issuer, issued_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		cert.ID,
		cert.Beneficiary.String(),
		cert.Contract.String(),
		cert.ChainID,
		cert.Score,
		cert.ReportPointer,
		cert.Issuer.String(),
		cert.IssuedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert certificate: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO contract_index (chain_id, contract, certificate_id)
		VALUES (?, ?, ?)`,
		cert.ChainID, cert.Contract.String(), cert.ID)
	if err != nil {
		return fmt.Errorf("failed to append to contract index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit indexed insert: %w", err)
	}
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (s *SqliteStore) Get(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	row := s.db.QueryRow(`
		SELECT id, beneficiary, contract, chain_id, score, report_pointer, issuer, issued_at, revoked
		FROM certificates WHERE id = ?`, id)
	return scanCertificate(row)
}

// SetRevoked marks the certificate revoked and returns the updated record.
func (s *SqliteStore) SetRevoked(id interfaces.CertificateID) (*interfaces.Certificate, error) {
	res, err := s.db.Exec("UPDATE certificates SET revoked = 1 WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke certificate: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation result: %w", err)
	}
	if affected == 0 {
		return nil, interfaces.ErrNotFound
	}

	return s.Get(id)
}

// Append adds id to the end of the contract's certificate list. Insertion
// order is preserved by rowid.
func (s *SqliteStore) Append(chainID interfaces.ChainID, contract interfaces.Address, id interfaces.CertificateID) error {
	_, err := s.db.Exec(`
		INSERT INTO contract_index (chain_id, contract, certificate_id)
		VALUES (?, ?, ?)`,
		chainID, contract.String(), id)
	if err != nil {
		return fmt.Errorf("failed to append to contract index: %w", err)
	}
	return nil
}

// Lookup returns the ordered certificate ids issued against the contract.
func (s *SqliteStore) Lookup(chainID interfaces.ChainID, contract interfaces.Address) ([]interfaces.CertificateID, error) {
	rows, err := s.db.Query(`
		SELECT certificate_id FROM contract_index
		WHERE chain_id = ? AND contract = ?
		ORDER BY rowid`,
		chainID, contract.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query contract index: %w", err)
	}
	defer rows.Close()

	var ids []interfaces.CertificateID
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan certificate id: %w", err)
		}
		ids = append(ids, interfaces.CertificateID(id))
	}
	return ids, rows.Err()
}

func scanCertificate(row *sql.Row) (*interfaces.Certificate, error) {
	var (
		cert           interfaces.Certificate
		id             uint64
		beneficiaryHex string
		contractHex    string
		issuerHex      string
		issuedAt       time.Time
	)

	err := row.Scan(&id, &beneficiaryHex, &contractHex, &cert.ChainID, &cert.Score, &cert.ReportPointer, &issuerHex, &issuedAt, &cert.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan certificate: %w", err)
	}

	cert.ID = interfaces.CertificateID(id)
	cert.IssuedAt = issuedAt
	if cert.Beneficiary, err = interfaces.NewAddressFromHex(beneficiaryHex); err != nil {
		return nil, fmt.Errorf("corrupt beneficiary address: %w", err)
	}
	if cert.Contract, err = interfaces.NewAddressFromHex(contractHex); err != nil {
		return nil, fmt.Errorf("corrupt contract address: %w", err)
	}
	if cert.Issuer, err = interfaces.NewAddressFromHex(issuerHex); err != nil {
		return nil, fmt.Errorf("corrupt issuer address: %w", err)
	}

	return &cert, nil
}
