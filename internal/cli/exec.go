package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/sproc/internal/access"
	"github.com/roach88/sproc/internal/materialize"
	"github.com/roach88/sproc/internal/params"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Params   []string
	Capacity int
	Cache    string
	AutoKey  bool
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <schema.procedure>",
		Short: "Execute a procedure and print its result sets",
		Long: `Execute a stored procedure and print every result set it returns.

Parameters are bound by name in the order given. A parameter without a value
binds NULL. With --cache the result is looked up in, and stored to, the named
tier; --auto-key replaces the directive's key with one derived from the
procedure name and parameters.

Example:
  sproc exec dbo.GetUsers --param tenant_id:int64=7
  sproc exec dbo.GetUsers --param tenant_id:int64=7 --cache distributed:users:5m
  sproc exec dbo.Search --param term:string=widget --cache timed:auto:30s --auto-key`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execProcedure(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter as name:type=value (repeatable)")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", params.DefaultCapacityHint, "expected row count per result set")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "cache directive as tier:key[:ttl]")
	cmd.Flags().BoolVar(&opts.AutoKey, "auto-key", false, "derive the cache key from the call")

	return cmd
}

// ExecResult is the output of the exec command.
type ExecResult struct {
	Procedure  string      `json:"procedure"`
	ResultSets []ResultSet `json:"result_sets"`
}

// ResultSet is one printed result set.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// WriteText renders each result set as an aligned table.
func (r ExecResult) WriteText(w io.Writer) error {
	for i, rs := range r.ResultSets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "-- %s result set %d (%d rows)\n", r.Procedure, i+1, len(rs.Rows))
		if len(rs.Columns) == 0 {
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(rs.Columns, "\t"))
		for _, row := range rs.Rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = formatCell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

func execProcedure(opts *ExecOptions, name string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	set, err := buildSet(opts, name)
	if err != nil {
		out.Error(ErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid call", err)
	}

	rt, err := openRuntime(opts.Config)
	if err != nil {
		out.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			log.WithField("err", closeErr).Warn("error closing runtime")
		}
	}()

	ctx, stop := signalContext(cmd)
	defer stop()

	out.VerboseLog("executing %s", set.QualifiedName())
	tables, err := access.QueryTables(ctx, rt.client, set)
	if err != nil {
		out.Error(ErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "execution failed", err)
	}

	return out.Success(newExecResult(set.QualifiedName(), tables))
}

func buildSet(opts *ExecOptions, name string) (params.Set, error) {
	schema, procedure, err := splitQualified(name)
	if err != nil {
		return params.Set{}, err
	}

	b := params.NewBuilder(schema, procedure).Capacity(opts.Capacity)
	for _, raw := range opts.Params {
		p, err := parseParam(raw)
		if err != nil {
			return params.Set{}, err
		}
		b.Param(p.Name, p.Type, p.Value)
	}

	if opts.Cache == "" {
		if opts.AutoKey {
			return params.Set{}, fmt.Errorf("--auto-key requires --cache")
		}
		return b.Build()
	}

	d, err := params.ParseDirective(opts.Cache)
	if err != nil {
		return params.Set{}, err
	}
	if opts.AutoKey {
		// Derive from the call without the directive, then attach it.
		unkeyed, err := b.Build()
		if err != nil {
			return params.Set{}, err
		}
		key, err := params.DeriveKey(unkeyed)
		if err != nil {
			return params.Set{}, err
		}
		var ttl *time.Duration
		if exp, ok := d.Expiration(); ok {
			ttl = &exp
		}
		if d, err = params.NewCacheDirective(d.Tier(), key, ttl); err != nil {
			return params.Set{}, err
		}
	}
	return b.Cache(d).Build()
}

func newExecResult(name string, tables []materialize.Table) ExecResult {
	r := ExecResult{Procedure: name, ResultSets: make([]ResultSet, len(tables))}
	for i, t := range tables {
		rows := make([][]any, len(t.Rows))
		for j, row := range t.Rows {
			rows[j] = make([]any, len(row))
			for k, v := range row {
				if b, ok := v.([]byte); ok {
					v = string(b)
				}
				rows[j][k] = v
			}
		}
		cols := t.Columns
		if cols == nil {
			cols = []string{}
		}
		r.ResultSets[i] = ResultSet{Columns: cols, Rows: rows}
	}
	return r
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
