// pkg/deploy/postgres.go
//
// Administrative Postgres provisioning over the local unix socket,
// authenticating as the postgres superuser via peer auth. DDL here must
// tolerate "already exists" so a re-run is a no-op.

package deploy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/rosterlabs/rosterctl/pkg/crypto"
)

const (
	pqDuplicateDatabase = "42P04"
	pqDuplicateObject   = "42710"
)

// AdminDB is a superuser connection to the local Postgres cluster.
type AdminDB struct {
	db *sql.DB
}

// OpenAdmin connects to the maintenance database over the local unix
// socket as the postgres superuser (peer authentication).
func OpenAdmin(ctx context.Context) (*AdminDB, error) {
	db, err := sql.Open("postgres",
		"host=/var/run/postgresql user=postgres dbname=postgres sslmode=disable")
	if err != nil {
		return nil, cerr.Wrap(err, "open admin connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, cerr.Wrap(err, "ping postgres over unix socket")
	}
	return &AdminDB{db: db}, nil
}

func (a *AdminDB) Close() error {
	return a.db.Close()
}

// RoleExists checks pg_roles for the named role.
func (a *AdminDB) RoleExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx,
		`select exists(select 1 from pg_roles where rolname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, cerr.Wrapf(err, "query pg_roles for %s", name)
	}
	return exists, nil
}

// DatabaseExists checks pg_database for the named database.
func (a *AdminDB) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx,
		`select exists(select 1 from pg_database where datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, cerr.Wrapf(err, "query pg_database for %s", name)
	}
	return exists, nil
}

// EnsureRole creates the application role with the given password, or
// converges the password when the role already exists. Role DDL cannot
// be parameterized, so identifiers and the password literal are quoted
// explicitly.
func (a *AdminDB) EnsureRole(ctx context.Context, name string, password crypto.SecretString) error {
	logger := otelzap.Ctx(ctx)

	exists, err := a.RoleExists(ctx, name)
	if err != nil {
		return err
	}

	if exists {
		logger.Info("Role exists, converging password", zap.String("role", name))
		stmt := fmt.Sprintf("ALTER ROLE %s WITH LOGIN PASSWORD %s",
			pq.QuoteIdentifier(name), pq.QuoteLiteral(password.Reveal()))
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return cerr.Wrapf(err, "alter role %s", name)
		}
		return nil
	}

	logger.Info("Creating database role", zap.String("role", name))
	stmt := fmt.Sprintf("CREATE ROLE %s WITH LOGIN PASSWORD %s",
		pq.QuoteIdentifier(name), pq.QuoteLiteral(password.Reveal()))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		if isPQCode(err, pqDuplicateObject) {
			return nil // raced with a concurrent create; converged anyway
		}
		return cerr.Wrapf(err, "create role %s", name)
	}
	return nil
}

// EnsureDatabase creates the application database owned by the role,
// tolerating pre-existence.
func (a *AdminDB) EnsureDatabase(ctx context.Context, name, owner string) error {
	logger := otelzap.Ctx(ctx)

	exists, err := a.DatabaseExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("Database already exists", zap.String("database", name))
		return nil
	}

	logger.Info("Creating database",
		zap.String("database", name),
		zap.String("owner", owner))
	stmt := fmt.Sprintf("CREATE DATABASE %s OWNER %s",
		pq.QuoteIdentifier(name), pq.QuoteIdentifier(owner))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		if isPQCode(err, pqDuplicateDatabase) {
			return nil
		}
		return cerr.Wrapf(err, "create database %s", name)
	}
	return nil
}

// GrantAll grants the role full privileges on the database. Grants are
// idempotent in Postgres.
func (a *AdminDB) GrantAll(ctx context.Context, database, role string) error {
	stmt := fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s",
		pq.QuoteIdentifier(database), pq.QuoteIdentifier(role))
	if _, err := a.db.ExecContext(ctx, stmt); err != nil {
		return cerr.Wrapf(err, "grant on %s to %s", database, role)
	}
	return nil
}

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return cerr.As(err, &pqErr) && string(pqErr.Code) == code
}
