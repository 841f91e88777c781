package models

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Column Mismatch Report

ColumnMismatchReport lists database columns that no field of the matching
model maps to. It is run by `blog-cms generate` after migrating, or on its
own with `blog-cms generate --report-only`.

Example output:
=== COLUMN MISMATCH REPORT ===
--- Table: posts ---
Found 1 columns not accounted for in model:
  - legacy_url

--- Table: tags ---
All columns are accounted for in the model.

=== SUMMARY ===
Total mismatched columns across all tables: 1
*/

// GenerateModels migrates the schema, prints the column report and writes
// typed query helpers for every model into outPath.
func GenerateModels(db *gorm.DB, outPath string, w io.Writer) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	verbose := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	db = db.Session(&gorm.Session{
		Logger:                 verbose,
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(All()...)

	fmt.Fprintln(w, "Migrating models...")
	if err := Migrate(db); err != nil {
		return err
	}
	fmt.Fprintln(w, "Database migration completed successfully!")

	if _, err := ColumnMismatchReport(db, w); err != nil {
		return err
	}

	g.Execute()
	fmt.Fprintln(w, "Model generation complete!")
	return nil
}

// ColumnMismatchReport writes the report to w and returns the total number
// of unmapped columns.
func ColumnMismatchReport(db *gorm.DB, w io.Writer) (int, error) {
	fmt.Fprintln(w, "=== COLUMN MISMATCH REPORT ===")

	total := 0
	for _, model := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return total, fmt.Errorf("parse model %T: %w", model, err)
		}
		tableName := stmt.Schema.Table

		fmt.Fprintf(w, "\n--- Table: %s ---\n", tableName)
		if !db.Migrator().HasTable(tableName) {
			fmt.Fprintln(w, "Table does not exist yet (will be created during migration)")
			continue
		}

		dbColumns, err := tableColumns(db, tableName)
		if err != nil {
			return total, err
		}

		mismatches := findColumnMismatches(dbColumns, stmt.Schema.DBNames)
		if len(mismatches) == 0 {
			fmt.Fprintln(w, "All columns are accounted for in the model.")
			continue
		}

		fmt.Fprintf(w, "Found %d columns not accounted for in model:\n", len(mismatches))
		for _, col := range mismatches {
			fmt.Fprintf(w, "  - %s\n", col)
		}
		total += len(mismatches)
	}

	fmt.Fprintf(w, "\n=== SUMMARY ===\n")
	fmt.Fprintf(w, "Total mismatched columns across all tables: %d\n", total)
	return total, nil
}

func tableColumns(db *gorm.DB, tableName string) ([]string, error) {
	columnTypes, err := db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	columns := make([]string, 0, len(columnTypes))
	for _, ct := range columnTypes {
		columns = append(columns, ct.Name())
	}
	return columns, nil
}

// findColumnMismatches returns the database columns missing from modelFields, sorted.
func findColumnMismatches(dbColumns, modelFields []string) []string {
	known := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		known[field] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !known[col] {
			mismatches = append(mismatches, col)
		}
	}
	sort.Strings(mismatches)
	return mismatches
}
