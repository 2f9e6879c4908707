package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/spelfilter/internal/filter"
	"github.com/solatis/spelfilter/internal/types"
)

var checkFields bool

var checkCmd = &cobra.Command{
	Use:   "check QUERY",
	Short: "Compile a query against the employee record type",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkFields, "fields", false, "list the fields a query may reference")
}

func runCheck(cmd *cobra.Command, args []string) error {
	engine, err := filter.NewEngine[types.Employee](types.MaxQueryLength)
	if err != nil {
		return err
	}

	if checkFields {
		for _, a := range engine.Schema().Attributes() {
			fmt.Fprintf(stdout, "%-20s %-10s %s\n", a.Name, a.Kind(), a.Type)
		}
	}

	query := args[0]
	if _, err := engine.Compile(query); err != nil {
		var cerr *filter.CompileError
		if errors.As(err, &cerr) && cerr.Pos > 0 {
			fmt.Fprintln(stdout, query)
			fmt.Fprintln(stdout, strings.Repeat(" ", cerr.Pos-1)+"^")
		}
		return err
	}

	fmt.Fprintln(stdout, "ok")
	return nil
}
