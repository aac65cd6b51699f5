package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// ClickHouseConfig locates a ClickHouse server.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string

	// BatchSize is the number of buffered entries that triggers a flush.
	BatchSize int
}

// clickHouseWriter records into ClickHouse over the native protocol.
type clickHouseWriter struct {
	conn clickhouse.Conn

	mu         sync.Mutex
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// NewClickHouse connects to a ClickHouse server and returns a DataRecorder
// that writes to it.
func NewClickHouse(cfg ClickHouseConfig) (DataRecorder, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	w := &clickHouseWriter{
		conn:      conn,
		tables:    make(map[string]*table),
		batchSize: cfg.BatchSize,
	}

	atexit.Register(func() { w.Flush() })

	return w, nil
}

// clickHouseType maps a Go field kind to a ClickHouse column type.
func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("no ClickHouse type for %s", kind))
	}
}

// clickHouseCreateTableSQL returns the statement that creates a table for
// entries shaped like sampleEntry. Rows are ordered by the first column.
func clickHouseCreateTableSQL(tableName string, sampleEntry any) string {
	names := structs.Names(sampleEntry)
	st := reflect.TypeOf(sampleEntry)

	columns := make([]string, 0, len(names))
	for _, name := range names {
		field, _ := st.FieldByName(name)
		columns = append(columns,
			name+" "+clickHouseType(field.Type.Kind()))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), names[0])
}

func (w *clickHouseWriter) CreateTable(tableName string, sampleEntry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	err := w.conn.Exec(context.Background(),
		clickHouseCreateTableSQL(tableName, sampleEntry))
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

func (w *clickHouseWriter) InsertData(tableName string, entry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	table, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.flush()
	}
}

func (w *clickHouseWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]string, 0, len(w.tables))
	for table := range w.tables {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (w *clickHouseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.flush()
}

func (w *clickHouseWriter) flush() {
	if w.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for tableName, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w",
				tableName, err))
		}

		for _, entry := range table.entries {
			if err := batch.Append(fieldValues(entry)...); err != nil {
				panic(fmt.Errorf("failed to append to %s: %w",
					tableName, err))
			}
		}

		if err := batch.Send(); err != nil {
			panic(fmt.Errorf("failed to send batch for %s: %w",
				tableName, err))
		}

		table.entries = nil
	}

	w.entryCount = 0
}

func (w *clickHouseWriter) Close() error {
	w.Flush()
	return w.conn.Close()
}
