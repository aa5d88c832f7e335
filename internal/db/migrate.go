package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// columnSpec describes one expected column of a logical table.
type columnSpec struct {
	name        string // Persisted column name.
	addable     bool   // Whether the column can be added in place with its declared default.
	placeholder string // SQL literal substituted during a rebuild copy when the legacy table lacks the column.
}

// tableSpec describes the current expected shape of one logical table.
type tableSpec struct {
	model   any
	columns []columnSpec
}

// tableSpecs returns the expected shape of every table owned by the stores.
// Columns whose model tag carries a usable default are addable in place;
// anything else forces the rebuild fallback when missing.
func tableSpecs() []tableSpec {
	return []tableSpec{
		{
			model: &models.User{},
			columns: []columnSpec{
				{name: "id"},
				{name: "email"},
				{name: "username"},
				{name: "password"},
				{name: "firstName", placeholder: "'User'"},
				{name: "lastName", placeholder: "'Name'"},
				{name: "phone", placeholder: "''"},
				{name: "isAdmin", addable: true, placeholder: "0"},
				{name: "createdAt", placeholder: "0"},
			},
		},
		{
			model: &models.PasswordResetRequest{},
			columns: []columnSpec{
				{name: "id"},
				{name: "userId", placeholder: "0"},
				{name: "username", placeholder: "''"},
				{name: "email", placeholder: "''"},
				{name: "requestedAt", placeholder: "0"},
				{name: "status", addable: true, placeholder: "'pending'"},
				{name: "approvedBy", addable: true},
				{name: "approvedAt", addable: true},
				{name: "completedAt", addable: true},
			},
		},
		{
			model: &models.Activity{},
			columns: []columnSpec{
				{name: "id"},
				{name: "steps"},
				{name: "date"},
				{name: "userId", addable: true, placeholder: "0"},
				{name: "isProtected", addable: true, placeholder: "0"},
			},
		},
		{
			model: &models.ArchivedActivity{},
			columns: []columnSpec{
				{name: "id"},
				{name: "steps"},
				{name: "date"},
				{name: "archivedAt", addable: true, placeholder: "0"},
				{name: "userId", addable: true, placeholder: "0"},
			},
		},
	}
}

// Migrate brings every owned table up to the current schema. Per-table
// failures are logged and swallowed so startup is never blocked; the caller
// proceeds with whatever schema state resulted.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	for _, spec := range tableSpecs() {
		tableName, err := tableNameForModel(conn, spec.model)
		if err != nil {
			log.WithError(err).Error("db: resolve table name")
			continue
		}
		if errTable := migrateTable(conn, tableName, spec); errTable != nil {
			log.WithError(errTable).Errorf("db: migrate %s failed, continuing with current schema", tableName)
		}
	}
	return nil
}

// NeedsMigration reports whether the table is absent or lacks any of the
// expected columns. A missing table and a stale one are handled identically
// downstream: build the current schema.
func NeedsMigration(conn *gorm.DB, tableName string, expectedColumns []string) bool {
	if conn == nil {
		return false
	}
	migrator := conn.Migrator()
	if migrator == nil || !migrator.HasTable(tableName) {
		return true
	}
	actual, err := tableColumns(conn, tableName)
	if err != nil {
		// An uninspectable table counts as stale.
		log.WithError(err).Errorf("db: inspect %s", tableName)
		return true
	}
	for _, expected := range expectedColumns {
		if _, ok := actual[expected]; !ok {
			return true
		}
	}
	return false
}

// migrateTable creates the table when absent, adds missing addable columns in
// place, and falls back to a backup-rename-copy rebuild for shapes it cannot
// reconcile column by column.
func migrateTable(conn *gorm.DB, tableName string, spec tableSpec) error {
	migrator := conn.Migrator()
	if migrator == nil {
		return fmt.Errorf("db: nil migrator")
	}

	if !migrator.HasTable(tableName) {
		if errCreate := conn.AutoMigrate(spec.model); errCreate != nil {
			return fmt.Errorf("db: create %s: %w", tableName, errCreate)
		}
		return nil
	}

	actual, errCols := tableColumns(conn, tableName)
	if errCols != nil {
		return errCols
	}

	var missing []columnSpec
	rebuild := false
	for _, col := range spec.columns {
		if _, ok := actual[col.name]; ok {
			continue
		}
		missing = append(missing, col)
		if !col.addable {
			rebuild = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if rebuild {
		return rebuildTable(conn, tableName, spec, actual)
	}

	for _, col := range missing {
		if errAdd := migrator.AddColumn(spec.model, col.name); errAdd != nil {
			return fmt.Errorf("db: add column %s.%s: %w", tableName, col.name, errAdd)
		}
	}
	return nil
}

// rebuildTable renames the stale table to a backup, recreates the current
// schema, copies what it can from the backup substituting placeholder
// defaults for columns the backup never had, then drops the backup. A failed
// copy leaves the new table empty; that is logged, not returned, so startup
// continues.
func rebuildTable(conn *gorm.DB, tableName string, spec tableSpec, legacyColumns map[string]struct{}) error {
	migrator := conn.Migrator()
	backupName := uniqueBackupName(migrator, tableName)
	if errRename := migrator.RenameTable(tableName, backupName); errRename != nil {
		return fmt.Errorf("db: rename %s: %w", tableName, errRename)
	}
	// Named indexes follow the renamed table and would collide with the ones
	// AutoMigrate is about to create. Drop them first; the backup only lives
	// long enough to be copied from.
	if errIndexes := dropTableIndexes(conn, backupName); errIndexes != nil {
		return errIndexes
	}
	if errCreate := conn.AutoMigrate(spec.model); errCreate != nil {
		return fmt.Errorf("db: recreate %s: %w", tableName, errCreate)
	}

	var insertColumns, selectExprs []string
	for _, col := range spec.columns {
		if _, ok := legacyColumns[col.name]; ok {
			insertColumns = append(insertColumns, quoteIdentifier(col.name))
			selectExprs = append(selectExprs, quoteIdentifier(col.name))
			continue
		}
		if col.placeholder != "" {
			insertColumns = append(insertColumns, quoteIdentifier(col.name))
			selectExprs = append(selectExprs, col.placeholder)
		}
	}

	copySQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s",
		quoteIdentifier(tableName),
		strings.Join(insertColumns, ", "),
		strings.Join(selectExprs, ", "),
		quoteIdentifier(backupName),
	)
	if errCopy := conn.Exec(copySQL).Error; errCopy != nil {
		log.WithError(errCopy).Errorf("db: could not carry %s rows over, starting fresh", tableName)
	}

	if errDrop := migrator.DropTable(backupName); errDrop != nil {
		return fmt.Errorf("db: drop backup %s: %w", backupName, errDrop)
	}
	return nil
}

// dropTableIndexes removes the named indexes attached to the table. SQLite
// auto-indexes backing inline UNIQUE constraints cannot be dropped and are
// skipped; they disappear with the table itself.
func dropTableIndexes(conn *gorm.DB, tableName string) error {
	var names []string
	listSQL := "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name NOT LIKE 'sqlite_%'"
	if errList := conn.Raw(listSQL, tableName).Scan(&names).Error; errList != nil {
		return fmt.Errorf("db: list indexes on %s: %w", tableName, errList)
	}
	for _, name := range names {
		if errDrop := conn.Exec("DROP INDEX " + quoteIdentifier(name)).Error; errDrop != nil {
			return fmt.Errorf("db: drop index %s: %w", name, errDrop)
		}
	}
	return nil
}

// sqliteTableInfo mirrors PRAGMA table_info output.
type sqliteTableInfo struct {
	Cid          int            `gorm:"column:cid"`        // Column index.
	Name         string         `gorm:"column:name"`       // Column name.
	Type         string         `gorm:"column:type"`       // Column type.
	NotNull      int            `gorm:"column:notnull"`    // Not-null flag.
	DefaultValue sql.NullString `gorm:"column:dflt_value"` // Default value string.
	PK           int            `gorm:"column:pk"`         // Primary key flag.
}

// tableColumns returns the set of column names currently on the table.
func tableColumns(conn *gorm.DB, tableName string) (map[string]struct{}, error) {
	var info []sqliteTableInfo
	pragmaSQL := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(tableName))
	if errQuery := conn.Raw(pragmaSQL).Scan(&info).Error; errQuery != nil {
		return nil, fmt.Errorf("db: read table info %s: %w", tableName, errQuery)
	}
	columns := make(map[string]struct{}, len(info))
	for _, col := range info {
		if col.Name == "" {
			continue
		}
		columns[col.Name] = struct{}{}
	}
	return columns, nil
}

// tableNameForModel resolves the table name for the provided model.
func tableNameForModel(conn *gorm.DB, model any) (string, error) {
	stmt := &gorm.Statement{DB: conn}
	if err := stmt.Parse(model); err != nil {
		return "", fmt.Errorf("db: parse model: %w", err)
	}
	if stmt.Schema == nil || stmt.Schema.Table == "" {
		return "", fmt.Errorf("db: resolve table name")
	}
	return stmt.Schema.Table, nil
}

// uniqueBackupName builds a non-conflicting backup table name.
func uniqueBackupName(migrator gorm.Migrator, tableName string) string {
	base := tableName + "_backup"
	if !migrator.HasTable(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !migrator.HasTable(candidate) {
			return candidate
		}
	}
}

// quoteIdentifier quotes a SQLite identifier safely.
func quoteIdentifier(name string) string {
	if name == "" {
		return "\"\""
	}
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}
