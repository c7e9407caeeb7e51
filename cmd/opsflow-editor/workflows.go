package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/dukex/opsflow/pkg/models"
)

var errMissingArgument = errors.New("missing argument")

func listWorkflows(ctx context.Context, gw gateway.Gateway, out io.Writer, search string, limit int) error {
	page, err := gw.ListWorkflows(ctx, models.WorkflowFilter{Search: search, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to list workflows: %s", gateway.Message(err))
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tVERSION\tNODES\tCONNECTIONS")

	for _, wf := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			wf.ID, wf.Name, wf.Status, wf.Version, wf.NodeCount, wf.ConnectionCount)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if page.HasNextPage {
		fmt.Fprintf(out, "showing %d of %d\n", len(page.Items), page.TotalCount)
	}

	return nil
}

func createWorkflow(ctx context.Context, gw gateway.Gateway, out io.Writer, name, description string) error {
	if name == "" {
		return fmt.Errorf("%w: workflow name", errMissingArgument)
	}

	wf, err := gw.CreateWorkflow(ctx, models.WorkflowInput{Name: name, Description: description})
	if err != nil {
		return fmt.Errorf("failed to create workflow: %s", gateway.Message(err))
	}

	fmt.Fprintln(out, wf.ID)

	return nil
}
