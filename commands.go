package main

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mickamy/manythrough/internal/config"
	"github.com/mickamy/manythrough/internal/discover"
	"github.com/mickamy/manythrough/orm"
	"github.com/mickamy/manythrough/store/sqlstore"
	"github.com/mickamy/manythrough/through"
)

func newDiscoverCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Print association declarations found in a Go model file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(source, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Go file with model structs")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runDiscover(source string, w io.Writer) error {
	models, err := discover.Parse(source)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	decls := discover.Declarations(models)

	r := through.NewRegistry()
	for _, decl := range decls {
		if _, err := r.Declare(decl); err != nil {
			return err //nolint:wrapcheck // names the association already
		}
	}
	return discover.Render(w, decls)
}

// row is a host or target row reduced to its primary key.
type row struct {
	ID int64
}

// link is a join row reduced to its keys.
type link struct {
	ID     int64
	Host   int64
	Target int64
}

var linkMapping = through.Mapping[row, row, link, int64]{
	HostID:   func(h *row) int64 { return h.ID },
	TargetID: func(t *row) int64 { return t.ID },
	JoinKeys: linkKeys,
	NewJoin: func(hostID, targetID int64) link {
		return link{Host: hostID, Target: targetID}
	},
}

func linkKeys(l *link) through.JoinKey[int64] {
	return through.JoinKey[int64]{ID: l.ID, Host: l.Host, Target: l.Target}
}

// links returns a query factory for the join table of d.
func links(d through.Descriptor) sqlstore.QueryFunc[link] {
	columns := []string{d.JoinPrimaryKey, d.HostForeignKey, d.TargetForeignKey}
	return func(db orm.Querier) *orm.Query[link] {
		return orm.NewQuery[link](db, d.Join, columns, d.JoinPrimaryKey,
			func(rows *sql.Rows) (link, error) {
				var l link
				err := rows.Scan(&l.ID, &l.Host, &l.Target)
				return l, err
			},
			func(l *link, includesPK bool) ([]string, []any) {
				if includesPK {
					return columns, []any{l.ID, l.Host, l.Target}
				}
				return columns[1:], []any{l.Host, l.Target}
			},
			func(l *link, id int64) { l.ID = id },
		)
	}
}

// targets returns a read-only query factory for the target table of d.
func targets(d through.Descriptor) sqlstore.QueryFunc[row] {
	columns := []string{d.TargetPrimaryKey}
	return func(db orm.Querier) *orm.Query[row] {
		return orm.NewQuery[row](db, d.Target, columns, d.TargetPrimaryKey,
			func(rows *sql.Rows) (row, error) {
				var r row
				err := rows.Scan(&r.ID)
				return r, err
			},
			func(r *row, _ bool) ([]string, []any) { return columns, []any{r.ID} },
			nil,
		)
	}
}

type associationFlags struct {
	config string
	host   string
	assoc  string
	id     int64
	ids    string
	atomic bool
	dedupe bool
}

func bindAssociationFlags(cmd *cobra.Command, f *associationFlags) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "YAML config file (environment only if empty)")
	cmd.Flags().StringVar(&f.host, "host", "", "host table, e.g. hospitals")
	cmd.Flags().StringVar(&f.assoc, "assoc", "", "association name, e.g. doctors")
	cmd.Flags().Int64Var(&f.id, "id", 0, "host primary key")
	for _, name := range []string{"host", "assoc", "id"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// bindIDsFlag adds the required --ids flag. Clearing an association takes
// an explicit --ids "".
func bindIDsFlag(cmd *cobra.Command, f *associationFlags) {
	cmd.Flags().StringVar(&f.ids, "ids", "", `comma-separated target ids; --ids "" clears the association`)
	_ = cmd.MarkFlagRequired("ids")
}

func newIDsCommand() *cobra.Command {
	f := &associationFlags{}
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Print the target ids related to a host row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssociation(cmd, f)
		},
	}
	bindAssociationFlags(cmd, f)
	return cmd
}

func newPlanCommand() *cobra.Command {
	f := &associationFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which join rows a replace would add and remove",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssociation(cmd, f)
		},
	}
	bindAssociationFlags(cmd, f)
	bindIDsFlag(cmd, f)
	return cmd
}

func newSetCommand() *cobra.Command {
	f := &associationFlags{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the target ids related to a host row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAssociation(cmd, f)
		},
	}
	bindAssociationFlags(cmd, f)
	bindIDsFlag(cmd, f)
	cmd.Flags().BoolVar(&f.atomic, "atomic", false, "apply removals and additions in one transaction")
	cmd.Flags().BoolVar(&f.dedupe, "dedupe", false, "also delete duplicate join rows")
	return cmd
}

// items splits the -ids value for ReplaceLoose; blanks are dropped there.
func (f *associationFlags) items() []any {
	parts := strings.Split(f.ids, ",")
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = strings.TrimSpace(p)
	}
	return items
}

func runAssociation(cmd *cobra.Command, f *associationFlags) error {
	stdout := cmd.OutOrStdout()
	cfg, err := config.Load(f.config)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	logger, err := cfg.Logger()
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	defer func() { _ = logger.Sync() }()

	registry, err := cfg.Registry()
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	d, ok := registry.Lookup(f.host, f.assoc)
	if !ok {
		return fmt.Errorf("%w: %s.%s is not configured", through.ErrUnknownAssociation, f.host, f.assoc)
	}

	db, err := orm.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	defer func() { _ = db.Close() }()
	if logger.Core().Enabled(zap.DebugLevel) {
		db = db.Debug(orm.NewZapLogger(logger))
	}

	ctx := cmd.Context()

	assoc, err := through.New(d,
		sqlstore.NewJoins(db, links(d), linkKeys),
		sqlstore.NewTargets[row, int64](db, targets(d)),
		linkMapping,
		through.WithLogger(logger),
	)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	host := &row{ID: f.id}
	switch cmd.Name() {
	case "ids":
		ids, err := assoc.IDs(ctx, host)
		if err != nil {
			return err //nolint:wrapcheck // already wrapped
		}
		fmt.Fprintln(stdout, joinIDs(ids))
		return nil

	case "plan":
		desired, err := through.NormalizeLoose(f.items(), linkMapping.TargetID)
		if err != nil {
			return err //nolint:wrapcheck // already wrapped
		}
		diff, err := assoc.Plan(ctx, host, through.IDRefs[row](desired))
		if err != nil {
			return err //nolint:wrapcheck // already wrapped
		}
		printDiff(stdout, d, diff)
		return nil

	default:
		var opts []through.SyncOption
		if f.atomic {
			opts = append(opts, through.Atomic())
		}
		if f.dedupe {
			opts = append(opts, through.Deduplicate())
		}
		if err := assoc.ReplaceLoose(ctx, host, f.items(), opts...); err != nil {
			return err //nolint:wrapcheck // already wrapped
		}
		ids, err := assoc.IDs(ctx, host)
		if err != nil {
			return err //nolint:wrapcheck // already wrapped
		}
		fmt.Fprintf(stdout, "%s %d %s: %s\n", d.Host, f.id, d.IDsName(), joinIDs(ids))
		return nil
	}
}

func printDiff(w io.Writer, d through.Descriptor, diff through.Diff[int64]) {
	if diff.Empty() {
		fmt.Fprintf(w, "%s: in sync\n", d)
		return
	}
	for _, id := range diff.Removed {
		fmt.Fprintf(w, "- %s %d\n", d.TargetForeignKey, id)
	}
	for _, id := range diff.Added {
		fmt.Fprintf(w, "+ %s %d\n", d.TargetForeignKey, id)
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
