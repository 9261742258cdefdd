package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

// ListTasks prints every primitive task and every alias with its
// expansion.
func ListTasks(ctx context.Context, w io.Writer, opts Options) error {
	app, err := NewApp(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		errorutil.HandleError(logger.WithComponent("cli"), app.Close(ctx), "Failed to close app")
	}()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tRUNS")
	for _, name := range app.Registry.Names() {
		fmt.Fprintf(tw, "%s\t%s\n", name, name)
	}
	for _, alias := range app.Store.AliasNames() {
		seq, err := app.Runner.Expand(alias)
		if err != nil {
			fmt.Fprintf(tw, "%s\t(%v)\n", alias, err)
			continue
		}
		names := make([]string, len(seq))
		for i, n := range seq {
			names[i] = string(n)
		}
		fmt.Fprintf(tw, "%s\t%s\n", alias, strings.Join(names, ", "))
	}
	return tw.Flush()
}
