// Package cache stores compiled NCS programs in a SQL database, keyed by a
// hash of the script source and the compiler options that produced them.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
)

var log = commonlog.GetLogger("ncs.cache")

// ErrNotFound indicates no artifact is stored under a key.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one cached compilation result.
type Artifact struct {
	ID       uuid.UUID
	Key      string
	Name     string
	Code     []byte // NCS bytes
	Size     int    // instruction count
	Created  time.Time
	Compiler string
}

// blob is the CBOR payload stored in the data column.
type blob struct {
	Name     string `cbor:"1,keyasint"`
	Code     []byte `cbor:"2,keyasint"`
	Size     int    `cbor:"3,keyasint"`
	Compiler string `cbor:"4,keyasint,omitempty"`
}

var blobEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	blobEncMode = em
}

// compilerVersion is stored with each artifact. Bump it when code
// generation changes so stale artifacts miss.
const compilerVersion = "ncs-1"

// dialect covers the differences between the supported databases.
type dialect struct {
	driver   string
	blobType string
	numbered bool // $1 placeholders instead of ?
}

var dialects = map[string]dialect{
	"sqlite":   {driver: "sqlite", blobType: "BLOB"},
	"postgres": {driver: "postgres", blobType: "BYTEA", numbered: true},
	"mysql":    {driver: "mysql", blobType: "LONGBLOB"},
}

// normalizeDriver maps accepted spellings to a dialect name.
func normalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql", "pq":
		return "postgres", nil
	case "mysql", "mariadb":
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported database type: %s", name)
}

// Cache is a SQL-backed artifact store. It is safe for concurrent use.
type Cache struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

// Open connects to a cache database and creates its table if needed. For
// sqlite, dsn is a file path whose directory is created.
func Open(driver, dsn string) (*Cache, error) {
	name, err := normalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	d := dialects[name]

	if name == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if name == "sqlite" {
		// Set busy timeout for concurrent access
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	c := &Cache{db: db, dialect: d}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS ncs_artifacts (
		cache_key VARCHAR(64) PRIMARY KEY,
		id VARCHAR(36) NOT NULL,
		created BIGINT NOT NULL,
		data ` + d.blobType + ` NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	log.Debugf("opened %s cache", name)
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// bind rewrites ? placeholders for databases that number them.
func (c *Cache) bind(query string) string {
	if !c.dialect.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Get returns the artifact stored under key.
func (c *Cache) Get(key string) (*Artifact, error) {
	var (
		id      string
		created int64
		data    []byte
	)
	err := c.db.QueryRow(c.bind("SELECT id, created, data FROM ncs_artifacts WHERE cache_key = ?"), key).
		Scan(&id, &created, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying artifact: %w", err)
	}

	var b blob
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("cache: unmarshal artifact %s: %w", key, err)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cache: artifact %s has bad id %q: %w", key, id, err)
	}
	return &Artifact{
		ID:       uid,
		Key:      key,
		Name:     b.Name,
		Code:     b.Code,
		Size:     b.Size,
		Created:  time.Unix(0, created).UTC(),
		Compiler: b.Compiler,
	}, nil
}

// Put encodes p and stores it under key, replacing any earlier artifact.
func (c *Cache) Put(key, name string, p *bytecode.Program) (*Artifact, error) {
	code, err := bytecode.Encode(p)
	if err != nil {
		return nil, err
	}
	a := &Artifact{
		ID:       uuid.New(),
		Key:      key,
		Name:     name,
		Code:     code,
		Size:     p.Len(),
		Created:  time.Now().UTC(),
		Compiler: compilerVersion,
	}
	data, err := blobEncMode.Marshal(blob{Name: a.Name, Code: a.Code, Size: a.Size, Compiler: a.Compiler})
	if err != nil {
		return nil, fmt.Errorf("cache: marshal artifact: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	if _, err := tx.Exec(c.bind("DELETE FROM ncs_artifacts WHERE cache_key = ?"), key); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	if _, err := tx.Exec(c.bind("INSERT INTO ncs_artifacts (cache_key, id, created, data) VALUES (?, ?, ?, ?)"),
		key, a.ID.String(), a.Created.UnixNano(), data); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	log.Debugf("stored %s (%d instructions) as %s", name, a.Size, key)
	return a, nil
}

// Delete removes the artifact under key. A missing key is not an error.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec(c.bind("DELETE FROM ncs_artifacts WHERE cache_key = ?"), key); err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}
	return nil
}

// Prune removes artifacts created before cutoff and reports how many.
func (c *Cache) Prune(cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.db.Exec(c.bind("DELETE FROM ncs_artifacts WHERE created < ?"), cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning artifacts: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored artifacts.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM ncs_artifacts").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting artifacts: %w", err)
	}
	return n, nil
}

// Program decodes the artifact's bytecode.
func (a *Artifact) Program() (*bytecode.Program, error) {
	return bytecode.Decode(a.Code)
}

// Compile returns the cached program for source under opts, compiling and
// storing it on a miss. hit reports whether the cache served it.
func (c *Cache) Compile(name, source string, opts compiler.Options) (p *bytecode.Program, hit bool, err error) {
	key := Key(source, opts)
	a, err := c.Get(key)
	switch {
	case err == nil && a.Compiler == compilerVersion:
		cached, derr := a.Program()
		if derr == nil {
			log.Debugf("hit %s (%s)", name, key)
			return cached, true, nil
		}
		log.Warningf("discarding corrupt artifact %s: %v", key, derr)
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	p, err = compiler.CompileNamed(name, source, opts)
	if err != nil {
		return nil, false, err
	}
	if _, err := c.Put(key, name, p); err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// CompileFile is Compile for a script on disk. The script's directory is
// searched for includes after opts.IncludePaths, as compiler.CompileFile
// does.
func (c *Cache) CompileFile(path string, opts compiler.Options) (*bytecode.Program, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading script: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, false, err
	}
	opts.IncludePaths = append(append([]string(nil), opts.IncludePaths...), dir)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return c.Compile(name, string(data), opts)
}
