package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/spelfilter/internal/core/db"
	"github.com/solatis/spelfilter/internal/filter"
	"github.com/solatis/spelfilter/internal/records"
	"github.com/solatis/spelfilter/internal/types"
)

var (
	queryFile   string
	queryOutput string
)

var queryCmd = &cobra.Command{
	Use:   "query QUERY",
	Short: "Filter employee records",
	Long: `Filter employee records read from a YAML or JSON file (--file) or from
the database (--db-url) and print the matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "YAML or JSON file holding a list of employee records")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "yaml", "output format (yaml, json)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	engine, err := filter.NewEngine[types.Employee](types.MaxQueryLength)
	if err != nil {
		return err
	}
	p, err := engine.Compile(args[0])
	if err != nil {
		return err
	}

	var employees []types.Employee
	if queryFile != "" {
		employees, err = readRecordFile(queryFile)
	} else {
		employees, err = loadStoredEmployees(ctx)
	}
	if err != nil {
		return err
	}

	return writeRecords(filter.Apply(p, employees), queryOutput)
}

// readRecordFile decodes a list of employee records. JSON is a subset of
// YAML, so one decoder serves both.
func readRecordFile(path string) ([]types.Employee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var list []any
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	employees, err := records.EmployeesFromList(list)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return employees, nil
}

func loadStoredEmployees(ctx context.Context) ([]types.Employee, error) {
	if err := requireDBURL(); err != nil {
		return nil, fmt.Errorf("one of --file or --db-url required")
	}
	database, err := db.Open(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return nil, err
	}
	defer store.Close()

	return store.ListEmployees(ctx)
}

func writeRecords(employees []types.Employee, format string) error {
	list := records.EmployeesToList(employees)

	switch strings.ToLower(format) {
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	default:
		return fmt.Errorf("invalid --output %q (want yaml or json)", format)
	}
}
