package cli

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/sproc/internal/catalog"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage procedures stored in a SQLite database",
		Long: `SQLite has no stored procedures. The catalog stores named, ordered
statement lists that sproc executes as procedures; each statement yields one
result set.`,
	}
	cmd.AddCommand(newCatalogDefineCommand(rootOpts))
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogDropCommand(rootOpts))
	return cmd
}

type catalogDefineOptions struct {
	*RootOptions
	Statements  []string
	Description string
}

func newCatalogDefineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &catalogDefineOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "define <schema.procedure>",
		Short: "Create or replace a procedure",
		Long: `Create or replace a procedure from one or more statements.

Parameters are referenced by name with a colon prefix.

Example:
  sproc catalog define dbo.GetUsers \
    --statement "SELECT id, name FROM users WHERE tenant_id = :tenant_id" \
    --statement "SELECT COUNT(*) FROM users WHERE tenant_id = :tenant_id"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(rootOpts, cmd, func(store *catalog.Store) (any, error) {
				schema, name, err := splitQualified(args[0])
				if err != nil {
					return nil, err
				}
				p := catalog.Procedure{
					Schema:      schema,
					Name:        name,
					Description: opts.Description,
					Statements:  opts.Statements,
				}
				if err := store.Define(cmd.Context(), p); err != nil {
					return nil, err
				}
				log.WithFields(log.Fields{"procedure": p.QualifiedName(), "statements": len(p.Statements)}).Info("procedure defined")
				return catalogChange{Action: "defined", Procedure: p.QualifiedName()}, nil
			})
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Statements, "statement", "s", nil, "statement to run (repeatable, in order)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("statement")
	return cmd
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List defined procedures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(rootOpts, cmd, func(store *catalog.Store) (any, error) {
				procs, err := store.List(cmd.Context())
				if err != nil {
					return nil, err
				}
				return newCatalogListing(procs), nil
			})
		},
	}
}

func newCatalogDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "drop <schema.procedure>",
		Short:         "Remove a procedure",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(rootOpts, cmd, func(store *catalog.Store) (any, error) {
				schema, name, err := splitQualified(args[0])
				if err != nil {
					return nil, err
				}
				if err := store.Drop(cmd.Context(), schema, name); err != nil {
					return nil, err
				}
				return catalogChange{Action: "dropped", Procedure: args[0]}, nil
			})
		},
	}
}

// withCatalog opens the runtime, runs fn against its catalog and prints the
// result.
func withCatalog(opts *RootOptions, cmd *cobra.Command, fn func(*catalog.Store) (any, error)) error {
	out := opts.formatter(cmd)

	rt, err := openRuntime(opts.Config)
	if err != nil {
		out.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer rt.Close()

	store, err := rt.requireCatalog()
	if err != nil {
		return err
	}

	result, err := fn(store)
	if err != nil {
		out.Error(ErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "catalog operation failed", err)
	}
	return out.Success(result)
}

type catalogChange struct {
	Action    string `json:"action"`
	Procedure string `json:"procedure"`
}

func (c catalogChange) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s\n", c.Procedure, c.Action)
	return err
}

// CatalogEntry is one procedure in the list output.
type CatalogEntry struct {
	Procedure   string   `json:"procedure"`
	Description string   `json:"description,omitempty"`
	Statements  []string `json:"statements"`
}

type catalogListing struct {
	Procedures []CatalogEntry `json:"procedures"`
}

func newCatalogListing(procs []catalog.Procedure) catalogListing {
	l := catalogListing{Procedures: make([]CatalogEntry, len(procs))}
	for i, p := range procs {
		l.Procedures[i] = CatalogEntry{
			Procedure:   p.QualifiedName(),
			Description: p.Description,
			Statements:  p.Statements,
		}
	}
	return l
}

func (l catalogListing) WriteText(w io.Writer) error {
	if len(l.Procedures) == 0 {
		_, err := fmt.Fprintln(w, "no procedures defined")
		return err
	}
	for _, p := range l.Procedures {
		header := p.Procedure
		if p.Description != "" {
			header += " - " + p.Description
		}
		fmt.Fprintln(w, header)
		for i, stmt := range p.Statements {
			fmt.Fprintf(w, "  %d: %s\n", i+1, stmt)
		}
	}
	return nil
}
