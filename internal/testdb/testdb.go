// Package testdb starts throwaway MySQL and PostgreSQL containers for
// integration tests. One container per engine is shared by the whole test
// binary; every caller gets its own freshly created database inside it.
// SQLite needs no container: each caller gets a file in t.TempDir().
// RedisAddr starts a shared Redis server for the Redis join store.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql" // MySQL driver for database/sql
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql
	_ "github.com/mattn/go-sqlite3"    // SQLite driver for database/sql
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Engine identifies a database engine.
type Engine string

const (
	MySQL    Engine = "mysql"
	Postgres Engine = "postgres"
	SQLite   Engine = "sqlite3"
)

// Engines lists the container-backed engines integration tests run against.
var Engines = []Engine{MySQL, Postgres}

type server struct {
	container testcontainers.Container
	host      string
	port      string
}

type slot struct {
	once sync.Once
	srv  *server
	err  error
}

var (
	slots = map[Engine]*slot{MySQL: {}, Postgres: {}}
	seq   atomic.Int64
)

// DSN creates a new empty database on the shared server for engine and
// returns its DSN. The database is dropped when t finishes.
func DSN(t *testing.T, engine Engine) string {
	t.Helper()

	if engine == SQLite {
		return filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=on"
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sl, ok := slots[engine]
	if !ok {
		t.Fatalf("testdb: unknown engine %q", engine)
	}
	sl.once.Do(func() {
		sl.srv, sl.err = start(engine)
	})
	if sl.err != nil {
		t.Fatalf("testdb: start %s: %v", engine, sl.err)
	}
	srv := sl.srv

	name := fmt.Sprintf("test_%d_%d", time.Now().UnixNano()%1_000_000, seq.Add(1))
	admin, err := sql.Open(driver(engine), srv.dsn(engine, adminDatabase(engine)))
	if err != nil {
		t.Fatalf("testdb: open admin connection: %v", err)
	}
	defer func() { _ = admin.Close() }()

	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		t.Fatalf("testdb: create database %s: %v", name, err)
	}
	t.Cleanup(func() {
		db, err := sql.Open(driver(engine), srv.dsn(engine, adminDatabase(engine)))
		if err != nil {
			return
		}
		defer func() { _ = db.Close() }()
		_, _ = db.Exec("DROP DATABASE " + name)
	})

	return srv.dsn(engine, name)
}

// Open is DSN followed by sql.Open; the handle is closed when t finishes.
func Open(t *testing.T, engine Engine) *sql.DB {
	t.Helper()

	db, err := sql.Open(driver(engine), DSN(t, engine))
	if err != nil {
		t.Fatalf("testdb: open: %v", err)
	}
	if engine == SQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func driver(engine Engine) string {
	switch engine {
	case Postgres:
		return "pgx"
	case SQLite:
		return "sqlite3"
	default:
		return "mysql"
	}
}

func adminDatabase(engine Engine) string {
	if engine == Postgres {
		return "postgres"
	}
	return "mysql"
}

func (s *server) dsn(engine Engine, database string) string {
	if engine == Postgres {
		return fmt.Sprintf("postgres://postgres:postgres@%s:%s/%s?sslmode=disable", s.host, s.port, database)
	}
	return fmt.Sprintf("root:root@tcp(%s:%s)/%s?parseTime=true", s.host, s.port, database)
}

func start(engine Engine) (*server, error) {
	ctx := context.Background()

	var req testcontainers.ContainerRequest
	switch engine {
	case Postgres:
		req = testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		}
	case MySQL:
		req = testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "root",
			},
			WaitingFor: wait.ForListeningPort("3306/tcp").
				WithStartupTimeout(120 * time.Second),
		}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", engine, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	srv := &server{container: container, host: host, port: port.Port()}

	db, err := sql.Open(driver(engine), srv.dsn(engine, adminDatabase(engine)))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", engine, err)
	}
	defer func() { _ = db.Close() }()

	// MySQL accepts TCP connections before it finishes initialising.
	for range 60 {
		if err = db.PingContext(ctx); err == nil {
			return srv, nil
		}
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("%s never became ready: %w", engine, err)
}
